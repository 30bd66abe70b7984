package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db/models"
	mock_repositories "weekly_poll_bot/internal/db/repositories/mocks"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestBackoff_MonotonicAndCapped(t *testing.T) {
	base := 5 * time.Second
	maxDelay := time.Minute

	expected := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, time.Minute, time.Minute}
	for i, want := range expected {
		assert.Equal(t, want, services.Backoff(base, maxDelay, i+1), "attempt %d", i+1)
	}

	previous := time.Duration(0)
	for attempt := 1; attempt < 80; attempt++ {
		delay := services.Backoff(base, maxDelay, attempt)
		assert.GreaterOrEqual(t, delay, previous)
		assert.LessOrEqual(t, delay, maxDelay)
		previous = delay
	}

	assert.Equal(t, base, services.Backoff(base, maxDelay, 0))
}

func TestOutbox_RetriesWithBackoffUntilSent(t *testing.T) {
	f := newFixture(t)
	f.transport.FailNextTexts(2)

	message, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "hello")
	require.NoError(t, err)

	f.settle()
	stored, err := f.store.Outbox().GetOne(message.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.Equal(t, f.clock.Now().Add(5*time.Second), stored.NextRetryAt)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, testutil.ErrSendFailed.Error(), *stored.LastError)

	f.clock.Advance(4 * time.Second)
	assert.Empty(t, f.transport.Texts())

	f.clock.Advance(time.Second)
	stored, _ = f.store.Outbox().GetOne(message.ID)
	assert.Equal(t, 2, stored.AttemptCount)
	assert.Equal(t, f.clock.Now().Add(10*time.Second), stored.NextRetryAt)

	f.clock.Advance(10 * time.Second)
	stored, _ = f.store.Outbox().GetOne(message.ID)
	assert.Equal(t, models.OutboxStatusSent, stored.Status)
	assert.Equal(t, 3, stored.AttemptCount)
	assert.Nil(t, stored.LastError)
	require.Len(t, f.transport.Texts(), 1)

	assert.Equal(t, float64(2), promtestutil.ToFloat64(f.metrics.OutboxFailures))
	assert.Equal(t, float64(2), promtestutil.ToFloat64(f.metrics.OutboxRetries))
	assert.Equal(t, float64(0), promtestutil.ToFloat64(f.metrics.OutboxRetryable))
	assert.Equal(t, 0, f.clock.Pending())
}

func TestOutbox_ExhaustedMessageStaysFailed(t *testing.T) {
	f := newFixture(t)
	f.transport.FailNextTexts(10)

	message, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "hello")
	require.NoError(t, err)

	f.settle()
	f.clock.Advance(5 * time.Second)
	f.clock.Advance(10 * time.Second)

	stored, err := f.store.Outbox().GetOne(message.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.AttemptCount)
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(time.Hour)
	stored, _ = f.store.Outbox().GetOne(message.ID)
	assert.Equal(t, 3, stored.AttemptCount)
	assert.Equal(t, float64(3), promtestutil.ToFloat64(f.metrics.OutboxFailures))
	assert.Equal(t, float64(2), promtestutil.ToFloat64(f.metrics.OutboxRetries))
}

func TestOutbox_SendTimeoutCountsAsFailure(t *testing.T) {
	f := newFixture(t, withOutbox(func(o *configs.Outbox) {
		o.SendTimeout = 20 * time.Millisecond
	}))
	release := f.transport.BlockTexts()
	defer release()

	message, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "hello")
	require.NoError(t, err)
	f.settle()

	stored, err := f.store.Outbox().GetOne(message.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusFailed, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "timed out")
}

func TestOutbox_DrainsInBatches(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		_, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, text)
		require.NoError(t, err)
	}
	f.settle()

	texts := f.transport.Texts()
	require.Len(t, texts, 5)
	assert.Equal(t, "one", texts[0].Text)
	assert.Equal(t, "five", texts[4].Text)
}

func TestOutbox_UnpersistedOutcomeBacksOff(t *testing.T) {
	f := newFixture(t)
	f.store.SetFailOutboxMarks(errors.New("db down"))

	message, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "hello")
	require.NoError(t, err)
	f.settle()

	// Sent once, but the row is still due; the next drain waits the base delay.
	assert.Len(t, f.transport.Texts(), 1)
	assert.Equal(t, 1, f.clock.Pending())

	f.store.SetFailOutboxMarks(nil)
	f.clock.Advance(4 * time.Second)
	assert.Len(t, f.transport.Texts(), 1)

	f.clock.Advance(time.Second)
	stored, err := f.store.Outbox().GetOne(message.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusSent, stored.Status)
	assert.Len(t, f.transport.Texts(), 2)
}

func TestOutbox_ConcurrentDrainIsNoop(t *testing.T) {
	f := newFixture(t)
	release := f.transport.BlockTexts()

	_, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "one")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.outbox.Drain(context.Background())
	}()
	require.Eventually(t, func() bool { return f.transport.BlockedTexts() == 1 }, time.Second, time.Millisecond)

	// Queued while the first drain is stuck; its wake-up must not send anything.
	_, err = f.outbox.Enqueue(models.OutboxKindAnnouncement, "two")
	require.NoError(t, err)
	f.settle()
	f.outbox.Drain(context.Background())
	assert.Equal(t, 1, f.transport.BlockedTexts())
	assert.Empty(t, f.transport.Texts())

	release()
	<-done

	texts := f.transport.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "one", texts[0].Text)
	assert.Equal(t, "two", texts[1].Text)
	assert.Equal(t, 0, f.clock.Pending())
}

func TestOutbox_CorruptMessageIsSetAside(t *testing.T) {
	f := newFixture(t)

	broken, err := f.outbox.Enqueue(models.OutboxKindAnnouncement, "broken")
	require.NoError(t, err)
	f.store.CorruptOutboxPayload(broken.ID, "{not json")
	_, err = f.outbox.Enqueue(models.OutboxKindAnnouncement, "fine")
	require.NoError(t, err)

	f.settle()

	texts := f.transport.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "fine", texts[0].Text)

	messages := f.store.OutboxMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.OutboxStatusFailed, messages[0].Status)
	assert.Equal(t, messages[0].MaxAttempts, messages[0].AttemptCount)
	require.NotNil(t, messages[0].LastError)
	assert.Contains(t, *messages[0].LastError, "corrupt outbox.payload")
	assert.Equal(t, float64(0), promtestutil.ToFloat64(f.metrics.OutboxRetryable))
	assert.Equal(t, 0, f.clock.Pending())
}

func TestOutbox_LoadFailureReschedulesAtBaseDelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	repository := mock_repositories.NewMockOutboxRepository(ctrl)
	transport := testutil.NewTransport()
	config := configs.Outbox{BaseDelay: 5 * time.Second, MaxDelay: time.Minute, MaxAttempts: 3, SendTimeout: time.Second, BatchSize: 10}

	outbox := services.NewOutboxService(groupID, config, repository, transport, fake, metrics.NewUnregistered(fake), zap.NewNop().Sugar())
	defer outbox.Stop()

	gomock.InOrder(
		repository.EXPECT().GetDueIDs(groupID, now, 10).Return(nil, errors.New("connection reset")),
		repository.EXPECT().CountRetryable(groupID).Return(1, nil),
		repository.EXPECT().NextRetryAt(groupID).Return(&now, nil),
	)

	outbox.Drain(context.Background())
	assert.Equal(t, 1, fake.Pending())

	later := now.Add(5 * time.Second)
	gomock.InOrder(
		repository.EXPECT().GetDueIDs(groupID, later, 10).Return([]int64{}, nil),
		repository.EXPECT().CountRetryable(groupID).Return(0, nil),
		repository.EXPECT().NextRetryAt(groupID).Return(nil, nil),
	)

	fake.Advance(5 * time.Second)
	assert.Equal(t, 0, fake.Pending())
}
