package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

func TestSessionTransitions(t *testing.T) {
	edge, err := SessionTransitions.Edge(SessionStatusScheduled, SessionStatusCompleted)
	require.NoError(t, err)
	assert.True(t, edge)

	edge, err = SessionTransitions.Edge(SessionStatusScheduled, SessionStatusCancelled)
	require.NoError(t, err)
	assert.True(t, edge)

	edge, err = SessionTransitions.Edge(SessionStatusCompleted, SessionStatusCompleted)
	require.NoError(t, err)
	assert.False(t, edge)

	_, err = SessionTransitions.Edge(SessionStatusCompleted, SessionStatusScheduled)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = SessionTransitions.Edge(SessionStatusCancelled, SessionStatusCompleted)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestClassRequestTransitions(t *testing.T) {
	assert.True(t, ClassRequestTransitions.Allows(ClassRequestStatusPending, ClassRequestStatusApproved))
	assert.True(t, ClassRequestTransitions.Allows(ClassRequestStatusPending, ClassRequestStatusRejected))
	assert.False(t, ClassRequestTransitions.Allows(ClassRequestStatusApproved, ClassRequestStatusPending))
	assert.False(t, ClassRequestTransitions.Allows(ClassRequestStatusApproved, ClassRequestStatusApproved))

	edge, err := ClassRequestTransitions.Edge(ClassRequestStatusApproved, ClassRequestStatusApproved)
	require.NoError(t, err)
	assert.False(t, edge)
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "3_A", Slot{CycleDay: "3", Block: "A"}.Key())
	assert.Equal(t, "", Slot{CycleDay: "3"}.Key())
	assert.Equal(t, "", Slot{Block: "M11"}.Key())
}

func TestSessionMissingCompletionFields(t *testing.T) {
	full := Session{TutorUID: "t1", Slot: Slot{Date: "2026-10-13", CycleDay: "2", Block: "4"}}
	assert.Empty(t, full.MissingCompletionFields())

	partial := Session{Slot: Slot{Date: "2026-10-13", Block: "4"}}
	assert.Equal(t, []string{"tutorUid", "slot.cycleDay"}, partial.MissingCompletionFields())
}
