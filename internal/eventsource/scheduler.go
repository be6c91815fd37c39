package eventsource

import (
	"context"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ScheduledHandler runs on each tick of a schedule.
type ScheduledHandler func(ctx context.Context) error

// Scheduler runs time-based triggers.
type Scheduler struct {
	cron    *cronlib.Cron
	timeout time.Duration
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler constructs a stopped scheduler. timeout bounds each invocation when positive.
func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cronlib.New(cronlib.WithParser(cronParser), cronlib.WithChain(cronlib.Recover(cl)), cronlib.WithLogger(cl)),
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnSchedule registers h under a cron expression interpreted in timezone.
func (s *Scheduler) OnSchedule(name, spec, timezone string, h ScheduledHandler) error {
	expr, err := scheduleExpr(spec, timezone)
	if err != nil {
		return err
	}
	_, err = s.cron.AddFunc(expr, func() {
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		if err := h(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("register schedule %s: %w", name, err)
	}
	s.logger.Info("schedule registered", zap.String("job", name), zap.String("spec", expr))
	return nil
}

func scheduleExpr(spec, timezone string) (string, error) {
	if spec == "" {
		return "", fmt.Errorf("cron expression is required")
	}
	expr := spec
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return "", fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		expr = "CRON_TZ=" + timezone + " " + spec
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return "", fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return expr, nil
}

// Start begins firing registered schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
