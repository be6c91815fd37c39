package service

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-orchestrator/internal/catalog"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

func testComposer() *NotificationComposer {
	return NewNotificationComposer(ComposerConfig{OrgName: "HW Peer Tutoring", AdminEmail: adminEmail}, catalog.Default())
}

func TestComposerGoldenBodies(t *testing.T) {
	c := testComposer()
	session := scheduledSession()
	approved := pendingRequest("Math")
	approved.Status = models.ClassRequestStatusApproved
	approved.AutoApproved = true
	pending := pendingRequest("Math")

	cases := []struct {
		name  string
		build func() (models.Notification, error)
	}{
		{TemplateSessionConfirmed, func() (models.Notification, error) { return c.SessionConfirmed(session) }},
		{TemplateSessionCancelled, func() (models.Notification, error) { return c.SessionCancelled(session) }},
		{TemplateClassApproved, func() (models.Notification, error) { return c.ClassApproved(approved) }},
		{TemplateClassPendingReview, func() (models.Notification, error) { return c.ClassPendingReview(pending, nil) }},
		{TemplateClassRejected, func() (models.Notification, error) { return c.ClassRejected(pending) }},
		{TemplateTutoringMatch, func() (models.Notification, error) {
			request := models.TutoringRequest{ID: "tr1", Name: "Dana", Grade: "10", Class: "Algebra II", Subject: "Math", Topic: "Quadratics", Location: "Library"}
			return c.TutoringMatch(request, []TutorMatch{{
				Tutor: models.User{UID: "t1", Name: "Ben", Email: "ben@hw.com"},
				Slots: []models.Slot{{Date: "2024-03-12", CycleDay: "3", Block: "L"}, {CycleDay: "5", Block: "2"}},
			}})
		}},
	}

	g := goldie.New(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := tc.build()
			require.NoError(t, err)
			require.NotEmpty(t, n.Messages)
			assert.Equal(t, tc.name, n.Template)
			g.Assert(t, tc.name, []byte(n.Messages[0].Body))
		})
	}
}

func TestComposerDeduplicatesRecipients(t *testing.T) {
	c := testComposer()
	session := scheduledSession()
	session.TutorEmail = "Student@hw.com"

	n, err := c.SessionConfirmed(session)
	require.NoError(t, err)
	assert.Equal(t, []string{"student@hw.com", adminEmail}, Recipients(n))
}

func TestComposerTutoringMatchSkipsTutorsWithoutEmail(t *testing.T) {
	n, err := testComposer().TutoringMatch(models.TutoringRequest{ID: "tr1", Class: "Bio"}, []TutorMatch{
		{Tutor: models.User{UID: "t1"}, Slots: []models.Slot{{CycleDay: "1", Block: "1"}}},
		{Tutor: models.User{UID: "t2", Email: "t2@hw.com"}, Slots: []models.Slot{{CycleDay: "1", Block: "1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2@hw.com"}, Recipients(n))
	assert.Equal(t, "tutoring_match:tr1", n.Key)
	assert.Equal(t, "Tutoring Request: Bio", n.Messages[0].Subject)
}

func TestComposerPendingReviewUnknownRequester(t *testing.T) {
	request := pendingRequest("Math")
	request.UserName = ""
	request.UserEmail = ""

	n, err := testComposer().ClassPendingReview(request, []models.User{{UID: "l1", Email: "lead@hw.com"}})
	require.NoError(t, err)
	assert.Contains(t, n.Messages[0].Body, "A tutor has requested to tutor Algebra II (Math).")
	assert.Equal(t, []string{"lead@hw.com", adminEmail}, Recipients(n))
}
