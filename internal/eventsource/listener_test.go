package eventsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

type sessionsByID map[string]models.Session

func (s sessionsByID) GetByID(_ context.Context, id string) (*models.Session, error) {
	session, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

type classRequestsByID map[string]models.ClassRequest

func (s classRequestsByID) GetByID(_ context.Context, id string) (*models.ClassRequest, error) {
	request, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &request, nil
}

type failingTutoringRequests struct{}

func (failingTutoringRequests) GetByID(context.Context, string) (*models.TutoringRequest, error) {
	return nil, errors.New("connection refused")
}

func newTestListener() *PGListener {
	return NewPGListener(ListenerConfig{Channel: "tutoring_events"}, ListenerSources{
		Sessions: sessionsByID{
			"s1": {ID: "s1", Status: models.SessionStatusCompleted, TutorUID: "t1"},
		},
		ClassRequests: classRequestsByID{
			"cr1": {ID: "cr1", Status: models.ClassRequestStatusPending, Class: "Algebra I"},
		},
		TutoringRequests: failingTutoringRequests{},
	}, nil, nil)
}

func TestListenerSynthesisesBeforeFromPreviousStatus(t *testing.T) {
	l := newTestListener()

	env, err := l.Envelope(context.Background(), `{"collection":"Sessions","kind":"update","documentId":"s1","previousStatus":"scheduled"}`)
	require.NoError(t, err)
	assert.Equal(t, KindUpdate, env.Kind)
	assert.Equal(t, "s1", env.DocumentID)
	assert.NotEmpty(t, env.ID)

	var before, after models.Session
	require.NoError(t, json.Unmarshal(env.Before, &before))
	require.NoError(t, json.Unmarshal(env.After, &after))
	assert.Equal(t, models.SessionStatusScheduled, before.Status)
	assert.Equal(t, models.SessionStatusCompleted, after.Status)
	assert.Equal(t, "t1", before.TutorUID)
}

func TestListenerCreateHasNoBefore(t *testing.T) {
	l := newTestListener()

	env, err := l.Envelope(context.Background(), `{"collection":"ClassRequests","kind":"create","documentId":"cr1","previousStatus":null}`)
	require.NoError(t, err)
	assert.Equal(t, KindCreate, env.Kind)
	assert.Empty(t, env.Before)
}

func TestListenerErrors(t *testing.T) {
	l := newTestListener()
	ctx := context.Background()

	_, err := l.Envelope(ctx, `not json`)
	assert.True(t, errors.Is(err, appErrors.ErrParse))

	_, err = l.Envelope(ctx, `{"collection":"Sessions","kind":"update","documentId":"s1"}`)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = l.Envelope(ctx, `{"collection":"Sessions","kind":"create","documentId":"missing"}`)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = l.Envelope(ctx, `{"collection":"TutoringRequests","kind":"create","documentId":"tr1"}`)
	assert.True(t, errors.Is(err, appErrors.ErrStore))
	assert.True(t, appErrors.IsRetryable(err))

	_, err = l.Envelope(ctx, `{"collection":"Invoices","kind":"create","documentId":"i1"}`)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
