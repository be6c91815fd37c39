package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

func TestCacheServiceWithoutMetrics(t *testing.T) {
	cache := NewCacheService(&mapCache{values: map[string]models.CycleDay{}}, nil, time.Hour, nil, true)

	var day models.CycleDay
	hit, err := cache.Get(context.Background(), "cycle_day:2024-03-12", &day)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "cycle_day:2024-03-12", &models.CycleDay{Date: "2024-03-12", CycleDay: "5"}, 0))
	hit, err = cache.Get(context.Background(), "cycle_day:2024-03-12", &day)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "5", day.CycleDay)
}
