package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/mail"
	"github.com/noah-isme/tutoring-orchestrator/pkg/telemetry"
)

type mailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

type deliveryLedger interface {
	Claim(ctx context.Context, key, recipient string) (bool, error)
	Release(ctx context.Context, key, recipient string) error
}

type notificationMetrics interface {
	RecordNotification(template, outcome string)
}

// DispatcherConfig tunes per-event fan-out.
type DispatcherConfig struct {
	From        string
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// NotificationDispatcher delivers every message of a notification independently.
// A failing recipient never blocks, cancels or rolls back delivery to the others.
type NotificationDispatcher struct {
	sender  mailSender
	ledger  deliveryLedger
	metrics notificationMetrics
	logger  *zap.Logger
	tracer  trace.Tracer
	cfg     DispatcherConfig
}

// NewNotificationDispatcher constructs the dispatcher. ledger and metrics may be nil.
func NewNotificationDispatcher(sender mailSender, ledger deliveryLedger, metrics notificationMetrics, logger *zap.Logger, cfg DispatcherConfig) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &NotificationDispatcher{
		sender:  sender,
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer(telemetry.TracerName),
		cfg:     cfg,
	}
}

// Dispatch attempts every message and returns one outcome per message in input order.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, n models.Notification) []models.DeliveryOutcome {
	ctx, span := d.tracer.Start(ctx, "notification.dispatch", trace.WithAttributes(
		attribute.String("notification.template", n.Template),
		attribute.String("notification.key", n.Key),
		attribute.Int("notification.recipients", len(n.Messages)),
	))
	defer span.End()

	outcomes := make([]models.DeliveryOutcome, len(n.Messages))
	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, msg := range n.Messages {
		i, msg := i, msg
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, n, msg)
			return nil
		})
	}
	_ = g.Wait()

	sent, failed := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case models.DeliverySent:
			sent++
		case models.DeliveryFailed:
			failed++
		}
	}
	span.SetAttributes(attribute.Int("notification.sent", sent), attribute.Int("notification.failed", failed))
	return outcomes
}

func (d *NotificationDispatcher) deliver(ctx context.Context, n models.Notification, msg models.Message) models.DeliveryOutcome {
	outcome := models.DeliveryOutcome{To: msg.To}
	log := d.logger.With(zap.String("template", n.Template), zap.String("key", n.Key), zap.String("to", msg.To))

	if msg.To == "" {
		outcome.Status = models.DeliveryFailed
		outcome.Err = appErrors.Clone(appErrors.ErrValidation, "recipient address is empty")
		d.record(n.Template, outcome.Status)
		log.Warn("notification skipped", zap.Error(outcome.Err))
		return outcome
	}

	claimed := false
	if d.ledger != nil && n.Key != "" {
		ok, err := d.ledger.Claim(ctx, n.Key, msg.To)
		switch {
		case err != nil:
			log.Warn("delivery ledger unavailable, sending without dedup", zap.Error(err))
		case !ok:
			outcome.Status = models.DeliverySuppressed
			d.record(n.Template, outcome.Status)
			log.Info("notification already delivered")
			return outcome
		default:
			claimed = true
		}
	}

	var err error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		err = d.sender.Send(ctx, mail.Message{From: d.cfg.From, To: msg.To, Subject: msg.Subject, Text: msg.Body})
		if err == nil {
			break
		}
		log.Warn("notification attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < d.cfg.MaxAttempts && !sleepContext(ctx, d.cfg.RetryDelay) {
			break
		}
	}

	if err != nil {
		outcome.Status = models.DeliveryFailed
		outcome.Err = appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to send notification")
		if claimed {
			if releaseErr := d.ledger.Release(context.WithoutCancel(ctx), n.Key, msg.To); releaseErr != nil {
				log.Warn("failed to release delivery claim", zap.Error(releaseErr))
			}
		}
		d.record(n.Template, outcome.Status)
		log.Error("notification failed", zap.Int("attempts", outcome.Attempts), zap.Error(err))
		return outcome
	}

	outcome.Status = models.DeliverySent
	d.record(n.Template, outcome.Status)
	log.Info("notification sent", zap.Int("attempts", outcome.Attempts))
	return outcome
}

func (d *NotificationDispatcher) record(template string, status models.DeliveryStatus) {
	if d.metrics != nil {
		d.metrics.RecordNotification(template, string(status))
	}
}

// sleepContext waits for d or until ctx ends. It reports whether the full wait elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
