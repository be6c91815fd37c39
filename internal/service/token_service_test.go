package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "tutoring-orchestrator", Lifetime: time.Hour})

	raw, expires, err := svc.Issue("event-bridge", models.RoleService)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := svc.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "event-bridge", claims.UserID)
	assert.Equal(t, models.RoleService, claims.Role)
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Lifetime: time.Hour})
	other := NewTokenService(TokenConfig{Secret: "different", Lifetime: time.Hour})

	raw, _, err := other.Issue("intruder", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Parse(raw)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err = svc.Issue("old", models.RoleAdmin)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.Parse(raw)
	require.Error(t, err)
	assert.Equal(t, "token expired", appErrors.FromError(err).Message)
}

func TestTokenIssueValidates(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret"})
	_, _, err := svc.Issue("", models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = svc.Issue("x", models.ClientRole("ROOT"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
