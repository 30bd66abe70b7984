package scheduler

import (
	"testing"
	"time"

	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWeeklyScheduler_RejectsBadExpression(t *testing.T) {
	_, err := NewWeeklyScheduler(time.UTC, "not a cron", make(chan events.Event), clock.Real(), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestWeeklyScheduler_NextRunIsMondayNoon(t *testing.T) {
	location, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	s, err := NewWeeklyScheduler(location, "0 12 * * 1", make(chan events.Event, 1), clock.Real(), zap.NewNop().Sugar())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	next := s.NextRun().In(location)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 12, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestWeeklyScheduler_StopIsIdempotent(t *testing.T) {
	s, err := NewWeeklyScheduler(time.UTC, "0 12 * * 1", make(chan events.Event), clock.Real(), zap.NewNop().Sugar())
	require.NoError(t, err)

	s.Start()
	s.Stop()
	s.Stop()
}
