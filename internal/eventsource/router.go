package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/jobs"
	"github.com/noah-isme/tutoring-orchestrator/pkg/telemetry"
)

const (
	outcomeHandled = "handled"
	outcomeFailed  = "failed"
	outcomeIgnored = "ignored"
)

// Handler reacts to one envelope.
type Handler func(ctx context.Context, env Envelope) error

// TaskHandler runs a deferred follow-up for one document.
type TaskHandler func(ctx context.Context, documentID string) error

// Task is a follow-up scheduled onto the queue for a later time.
type Task struct {
	Name       string
	DocumentID string
}

const taskCollection = "tasks"

type eventMetrics interface {
	ObserveEvent(collection, kind, outcome string, duration time.Duration)
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

type routeKey struct {
	collection string
	kind       Kind
}

// Router maps (collection, kind) pairs to handlers. Envelopes for unrouted pairs are ignored.
type Router struct {
	mu      sync.RWMutex
	routes  map[routeKey]Handler
	tasks   map[string]TaskHandler
	queue   enqueuer
	metrics eventMetrics
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewRouter constructs an empty router. metrics may be nil.
func NewRouter(metrics eventMetrics, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		routes:  make(map[routeKey]Handler),
		tasks:   make(map[string]TaskHandler),
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer(telemetry.TracerName),
	}
}

// OnCreate registers h for creations in collection.
func (r *Router) OnCreate(collection string, h Handler) {
	r.register(collection, KindCreate, h)
}

// OnUpdate registers h for updates in collection.
func (r *Router) OnUpdate(collection string, h Handler) {
	r.register(collection, KindUpdate, h)
}

func (r *Router) register(collection string, kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[routeKey{collection: collection, kind: kind}] = h
}

// OnTask registers h for tasks scheduled under name.
func (r *Router) OnTask(name string, h TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = h
}

// OnCreate registers a handler receiving the decoded created document.
func OnCreate[T any](r *Router, collection string, h func(ctx context.Context, doc T) error) {
	r.OnCreate(collection, func(ctx context.Context, env Envelope) error {
		var doc T
		if err := decodeSnapshot(env.After, &doc); err != nil {
			return err
		}
		return h(ctx, doc)
	})
}

// OnUpdate registers a handler receiving the decoded before and after documents.
func OnUpdate[T any](r *Router, collection string, h func(ctx context.Context, before, after T) error) {
	r.OnUpdate(collection, func(ctx context.Context, env Envelope) error {
		var before, after T
		if err := decodeSnapshot(env.Before, &before); err != nil {
			return err
		}
		if err := decodeSnapshot(env.After, &after); err != nil {
			return err
		}
		return h(ctx, before, after)
	})
}

func decodeSnapshot(raw json.RawMessage, dest interface{}) error {
	if len(raw) == 0 {
		return appErrors.Clone(appErrors.ErrParse, "snapshot is empty")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, "decode snapshot")
	}
	return nil
}

// Routed reports whether a handler exists for the pair.
func (r *Router) Routed(collection string, kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[routeKey{collection: collection, kind: kind}]
	return ok
}

// Deliver runs the handler registered for env synchronously.
func (r *Router) Deliver(ctx context.Context, env Envelope) error {
	r.mu.RLock()
	h, ok := r.routes[routeKey{collection: env.Collection, kind: env.Kind}]
	r.mu.RUnlock()

	if !ok {
		r.observe(env, outcomeIgnored, 0)
		r.logger.Debug("no handler for event",
			zap.String("collection", env.Collection),
			zap.String("kind", string(env.Kind)),
		)
		return nil
	}

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("event.%s.%s", env.Collection, env.Kind), trace.WithAttributes(
		attribute.String("event.id", env.ID),
		attribute.String("event.collection", env.Collection),
		attribute.String("event.kind", string(env.Kind)),
		attribute.String("event.document_id", env.DocumentID),
	))
	defer span.End()

	start := time.Now()
	err := h(ctx, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe(env, outcomeFailed, time.Since(start))
		return err
	}
	r.observe(env, outcomeHandled, time.Since(start))
	return nil
}

func (r *Router) observe(env Envelope, outcome string, d time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveEvent(env.Collection, string(env.Kind), outcome, d)
}

// AttachQueue sets the queue Publish enqueues onto.
func (r *Router) AttachQueue(q enqueuer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = q
}

// Publish enqueues env for asynchronous delivery.
func (r *Router) Publish(env Envelope) error {
	r.mu.RLock()
	q := r.queue
	r.mu.RUnlock()
	if q == nil {
		return fmt.Errorf("event router has no queue attached")
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return q.Enqueue(jobs.Job{
		ID:      env.ID,
		Kind:    env.Collection + "." + string(env.Kind),
		Payload: env,
	})
}

// HasTask reports whether a handler exists for the task name.
func (r *Router) HasTask(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Schedule enqueues the task name for documentID to run no earlier than at.
func (r *Router) Schedule(name, documentID string, at time.Time) error {
	r.mu.RLock()
	q := r.queue
	r.mu.RUnlock()
	if q == nil {
		return fmt.Errorf("event router has no queue attached")
	}
	if !r.HasTask(name) {
		return fmt.Errorf("no handler for task %s", name)
	}
	return q.Enqueue(jobs.Job{
		ID:        name + ":" + documentID,
		Kind:      taskCollection + "." + name,
		Payload:   Task{Name: name, DocumentID: documentID},
		NotBefore: at,
	})
}

// RunTask runs the handler registered for task synchronously.
func (r *Router) RunTask(ctx context.Context, task Task) error {
	r.mu.RLock()
	h, ok := r.tasks[task.Name]
	r.mu.RUnlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no handler for task %s", task.Name))
	}

	ctx, span := r.tracer.Start(ctx, "task."+task.Name, trace.WithAttributes(
		attribute.String("task.name", task.Name),
		attribute.String("task.document_id", task.DocumentID),
	))
	defer span.End()

	start := time.Now()
	outcome := outcomeHandled
	err := h(ctx, task.DocumentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome = outcomeFailed
	}
	if r.metrics != nil {
		r.metrics.ObserveEvent(taskCollection, task.Name, outcome, time.Since(start))
	}
	return err
}

// HandleJob adapts Deliver and RunTask to the jobs queue handler signature.
func (r *Router) HandleJob(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case Envelope:
		if job.Attempt > 0 {
			r.logger.Info("redelivering event",
				zap.String("event_id", payload.ID),
				zap.String("collection", payload.Collection),
				zap.Int("attempt", job.Attempt),
			)
		}
		return r.Deliver(ctx, payload)
	case Task:
		if job.Attempt > 0 {
			r.logger.Info("rerunning task",
				zap.String("task", payload.Name),
				zap.String("document_id", payload.DocumentID),
				zap.Int("attempt", job.Attempt),
			)
		}
		return r.RunTask(ctx, payload)
	default:
		return appErrors.Clone(appErrors.ErrParse, fmt.Sprintf("unexpected job payload %T", job.Payload))
	}
}
