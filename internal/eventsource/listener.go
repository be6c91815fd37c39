package eventsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

type sessionReader interface {
	GetByID(ctx context.Context, id string) (*models.Session, error)
}

type classRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.ClassRequest, error)
}

type tutoringRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.TutoringRequest, error)
}

type publisher interface {
	Publish(env Envelope) error
}

// ListenerSources loads the current document named by a notification.
type ListenerSources struct {
	Sessions         sessionReader
	ClassRequests    classRequestReader
	TutoringRequests tutoringRequestReader
}

// ListenerConfig configures the Postgres LISTEN connection.
type ListenerConfig struct {
	DSN          string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
}

// notice is the payload the store triggers publish.
type notice struct {
	Collection     string  `json:"collection"`
	Kind           Kind    `json:"kind"`
	DocumentID     string  `json:"documentId"`
	PreviousStatus *string `json:"previousStatus"`
}

// PGListener turns Postgres NOTIFY payloads into envelopes. The trigger carries only the
// previous status, so before is the current row with that status restored.
//
// NOTIFY is not durable: changes committed while the connection is down are never delivered.
// The daily sweep still completes past sessions; any other change missed during an outage
// must be replayed through POST /events.
type PGListener struct {
	cfg     ListenerConfig
	sources ListenerSources
	out     publisher
	logger  *zap.Logger
}

// NewPGListener constructs the listener.
func NewPGListener(cfg ListenerConfig, sources ListenerSources, out publisher, logger *zap.Logger) *PGListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinReconnect <= 0 {
		cfg.MinReconnect = time.Second
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = time.Minute
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 90 * time.Second
	}
	return &PGListener{cfg: cfg, sources: sources, out: out, logger: logger}
}

// Run listens until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.cfg.DSN, l.cfg.MinReconnect, l.cfg.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("listener connection event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.cfg.Channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.cfg.Channel, err)
	}
	l.logger.Info("listening for store changes", zap.String("channel", l.cfg.Channel))

	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Reconnected; notifications sent while down are lost.
				l.logger.Warn("listener reconnected, changes during the outage were not delivered")
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				l.logger.Warn("listener ping failed", zap.Error(err))
			}
		}
	}
}

func (l *PGListener) handle(ctx context.Context, payload string) {
	env, err := l.Envelope(ctx, payload)
	if err != nil {
		l.logger.Error("failed to build event from notification", zap.String("payload", payload), zap.Error(err))
		return
	}
	if err := l.out.Publish(env); err != nil {
		l.logger.Error("failed to publish event",
			zap.String("collection", env.Collection),
			zap.String("document_id", env.DocumentID),
			zap.Error(err),
		)
	}
}

// Envelope resolves a trigger payload into a full envelope.
func (l *PGListener) Envelope(ctx context.Context, payload string) (Envelope, error) {
	var n notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return Envelope{}, appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, "decode notification")
	}
	if n.DocumentID == "" {
		return Envelope{}, appErrors.Clone(appErrors.ErrValidation, "documentId is required")
	}
	if n.Kind != KindCreate && n.Kind != KindUpdate {
		return Envelope{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown kind %q", n.Kind))
	}
	if n.Kind == KindUpdate && n.PreviousStatus == nil {
		return Envelope{}, appErrors.Clone(appErrors.ErrValidation, "previousStatus is required for updates")
	}

	var before, after interface{}
	switch n.Collection {
	case CollectionSessions:
		doc, err := l.sources.Sessions.GetByID(ctx, n.DocumentID)
		if err != nil {
			return Envelope{}, loadError(err, n)
		}
		after = doc
		if n.Kind == KindUpdate {
			prev := *doc
			prev.Status = models.SessionStatus(*n.PreviousStatus)
			before = prev
		}
	case CollectionClassRequests:
		doc, err := l.sources.ClassRequests.GetByID(ctx, n.DocumentID)
		if err != nil {
			return Envelope{}, loadError(err, n)
		}
		after = doc
		if n.Kind == KindUpdate {
			prev := *doc
			prev.Status = models.ClassRequestStatus(*n.PreviousStatus)
			before = prev
		}
	case CollectionTutoringRequests:
		if n.Kind != KindCreate {
			return Envelope{}, appErrors.Clone(appErrors.ErrValidation, "tutoring requests are immutable")
		}
		doc, err := l.sources.TutoringRequests.GetByID(ctx, n.DocumentID)
		if err != nil {
			return Envelope{}, loadError(err, n)
		}
		after = doc
	default:
		return Envelope{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported collection %q", n.Collection))
	}

	return NewEnvelope(uuid.NewString(), n.Collection, n.DocumentID, before, after)
}

func loadError(err error, n notice) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", n.Collection, n.DocumentID))
	}
	return appErrors.Store(err, fmt.Sprintf("load %s %s", n.Collection, n.DocumentID))
}
