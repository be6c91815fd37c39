package eventsource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/jobs"
)

type eventCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *eventCounter) ObserveEvent(collection, kind, outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[collection+"."+kind+"."+outcome]++
}

func (c *eventCounter) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[key]
}

func TestRouterDecodesTypedUpdates(t *testing.T) {
	router := NewRouter(nil, zaptest.NewLogger(t))

	var gotBefore, gotAfter models.Session
	OnUpdate(router, CollectionSessions, func(_ context.Context, before, after models.Session) error {
		gotBefore, gotAfter = before, after
		return nil
	})

	env, err := NewEnvelope("e1", CollectionSessions, "s1",
		models.Session{ID: "s1", Status: models.SessionStatusScheduled},
		models.Session{ID: "s1", Status: models.SessionStatusCancelled},
	)
	require.NoError(t, err)
	assert.Equal(t, KindUpdate, env.Kind)

	require.NoError(t, router.Deliver(context.Background(), env))
	assert.Equal(t, models.SessionStatusScheduled, gotBefore.Status)
	assert.Equal(t, models.SessionStatusCancelled, gotAfter.Status)
}

func TestRouterIgnoresUnroutedEvents(t *testing.T) {
	metrics := &eventCounter{}
	router := NewRouter(metrics, nil)

	env, err := NewEnvelope("e1", CollectionHourEntries, "h1", nil, map[string]string{"id": "h1"})
	require.NoError(t, err)

	require.NoError(t, router.Deliver(context.Background(), env))
	assert.Equal(t, 1, metrics.count("HourEntries.create.ignored"))
	assert.False(t, router.Routed(CollectionHourEntries, KindCreate))
}

func TestRouterReportsParseFailures(t *testing.T) {
	metrics := &eventCounter{}
	router := NewRouter(metrics, nil)
	OnCreate(router, CollectionClassRequests, func(context.Context, models.ClassRequest) error {
		t.Fatal("handler must not run for undecodable snapshots")
		return nil
	})

	err := router.Deliver(context.Background(), Envelope{
		ID:         "e1",
		Collection: CollectionClassRequests,
		Kind:       KindCreate,
		After:      json.RawMessage(`{"status": 42}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrParse))
	assert.False(t, appErrors.IsRetryable(err))
	assert.Equal(t, 1, metrics.count("ClassRequests.create.failed"))
}

func TestRouterPublishRequiresQueue(t *testing.T) {
	router := NewRouter(nil, nil)
	assert.Error(t, router.Publish(Envelope{ID: "e1"}))
}

func TestRouterPublishRetriesStoreFailures(t *testing.T) {
	router := NewRouter(nil, zaptest.NewLogger(t))

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	OnCreate(router, CollectionSessions, func(context.Context, models.Session) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return appErrors.Store(errors.New("connection reset"), "load session")
		}
		close(done)
		return nil
	})

	queue := jobs.NewQueue("events", router.HandleJob, jobs.QueueConfig{
		Workers:     1,
		MaxRetries:  2,
		RetryDelay:  10 * time.Millisecond,
		ShouldRetry: appErrors.IsRetryable,
	})
	queue.Start(context.Background())
	defer queue.Stop()
	router.AttachQueue(queue)

	env, err := NewEnvelope("e1", CollectionSessions, "s1", nil, models.Session{ID: "s1", Status: models.SessionStatusScheduled})
	require.NoError(t, err)
	require.NoError(t, router.Publish(env))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not redelivered")
	}
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestRouterHandleJobRejectsForeignPayload(t *testing.T) {
	router := NewRouter(nil, nil)
	err := router.HandleJob(context.Background(), jobs.Job{ID: "j1", Payload: "not an envelope"})
	assert.True(t, errors.Is(err, appErrors.ErrParse))
}

func TestRouterScheduleRequiresQueueAndHandler(t *testing.T) {
	router := NewRouter(nil, nil)
	assert.Error(t, router.Schedule("confirm_session", "s1", time.Now()))

	queue := jobs.NewQueue("events", router.HandleJob, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	router.AttachQueue(queue)
	assert.Error(t, router.Schedule("confirm_session", "s1", time.Now()))
}

func TestRouterRunsEventsWhileTaskIsPending(t *testing.T) {
	metrics := &eventCounter{}
	router := NewRouter(metrics, zaptest.NewLogger(t))

	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 2)
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
		done <- struct{}{}
	}
	router.OnTask("confirm_session", func(_ context.Context, id string) error {
		record("confirm:" + id)
		return nil
	})
	OnUpdate(router, CollectionClassRequests, func(_ context.Context, _, after models.ClassRequest) error {
		record("class_request:" + after.ID)
		return nil
	})

	queue := jobs.NewQueue("events", router.HandleJob, jobs.QueueConfig{Workers: 1, ShouldRetry: appErrors.IsRetryable})
	queue.Start(context.Background())
	defer queue.Stop()
	router.AttachQueue(queue)

	require.NoError(t, router.Schedule("confirm_session", "s1", time.Now().Add(100*time.Millisecond)))
	env, err := NewEnvelope("e2", CollectionClassRequests, "cr1",
		models.ClassRequest{ID: "cr1", Status: models.ClassRequestStatusPending},
		models.ClassRequest{ID: "cr1", Status: models.ClassRequestStatusApproved},
	)
	require.NoError(t, err)
	require.NoError(t, router.Publish(env))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("queued work was not handled")
		}
	}
	mu.Lock()
	assert.Equal(t, []string{"class_request:cr1", "confirm:s1"}, order)
	mu.Unlock()
	assert.Eventually(t, func() bool {
		return metrics.count("tasks.confirm_session.handled") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRouterRunTaskUnknownName(t *testing.T) {
	router := NewRouter(nil, nil)
	err := router.HandleJob(context.Background(), jobs.Job{ID: "j1", Payload: Task{Name: "missing", DocumentID: "s1"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
