package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/testutil"
	"weekly_poll_bot/internal/week"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPoll stores a poll for 2026-W10 as an earlier process would have left it.
func seedPoll(t *testing.T, store *testutil.Store, status models.PollStatus, createdAt, closesAt time.Time) *models.Poll {
	t.Helper()

	location := berlin(t)
	options := week.BuildOptions(location, 2026, 10, week.DefaultTemplate())
	pollOptions := make([]models.PollOption, 0, len(options))
	for i, option := range options {
		pollOptions = append(pollOptions, models.PollOption{
			Label:   option.Label,
			Weekday: option.Weekday,
			Hour:    option.Hour,
			Minute:  option.Minute,
			LocalID: fmt.Sprintf("%d", i),
		})
	}

	return store.Insert(&models.Poll{
		GroupID:       groupID,
		WeekKey:       "2026-W10",
		PollMessageID: "seed-1",
		Question:      "Which slot? (2026-W10)",
		Status:        status,
		CreatedAt:     createdAt,
		ClosesAt:      closesAt,
		Options:       pollOptions,
	})
}

func TestRecover_ClosesOverduePoll(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))
	poll := seedPoll(t, store, models.PollStatusOpen, monday, monday.Add(48*time.Hour))

	f := newFixtureAt(t, monday.Add(72*time.Hour), store, testutil.NewTransport(), withQuorum(5))

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Polls)
	assert.Equal(t, 1, stats.ClosedOverdue)
	assert.True(t, stats.FetchUnsupported)
	assert.False(t, stats.CaughtUp)

	closed := f.reload(poll)
	assert.Equal(t, models.PollStatusAnnounced, closed.Status)
	assert.Equal(t, models.CloseReasonDeadline, *closed.CloseReason)

	messages := f.store.OutboxMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.OutboxStatusSent, messages[0].Status)
	assert.Len(t, f.transport.Polls(), 0)
}

func TestRecover_QuorumBeatsStaleDeadline(t *testing.T) {
	store := testutil.NewStore()
	transport := testutil.NewTransport()
	monday := mondayNoon(berlin(t))
	poll := seedPoll(t, store, models.PollStatusOpen, monday, monday.Add(48*time.Hour))

	transport.SetRemoteVotes("seed-1",
		eventsFor("seed-1", "@alice", "1"),
		eventsFor("seed-1", "@bob", "1", "3"),
		eventsFor("seed-1", "@mallory", "3"),
	)

	f := newFixtureAt(t, monday.Add(72*time.Hour), store, transport)

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 2, stats.Upserted)
	assert.Equal(t, 1, stats.Skipped["not_allowlisted"])
	assert.Equal(t, 1, stats.ClosedByQuorum)
	assert.Equal(t, 0, stats.ClosedOverdue)

	closed := f.reload(poll)
	assert.Equal(t, models.CloseReasonQuorum, *closed.CloseReason)
	assert.Equal(t, 1, *closed.WinningOptionIdx)
	assert.Equal(t, 2, *closed.WinnerVoteCount)
}

func TestRecover_ReschedulesFromPersistedDeadline(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))
	poll := seedPoll(t, store, models.PollStatusOpen, monday.Add(-18*time.Hour), monday.Add(30*time.Hour))

	f := newFixtureAt(t, monday, store, testutil.NewTransport(), withQuorum(5))

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rescheduled)

	// Longer than the maximum timer delay, so the timer chains once.
	f.clock.Advance(24 * time.Hour)
	assert.Equal(t, models.PollStatusOpen, f.reload(poll).Status)

	f.clock.Advance(6*time.Hour - time.Second)
	assert.Equal(t, models.PollStatusOpen, f.reload(poll).Status)

	f.clock.Advance(time.Second)
	assert.Equal(t, models.PollStatusAnnounced, f.reload(poll).Status)
}

func TestRecover_ResolvesOverdueTie(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))
	closedAt := monday.Add(48 * time.Hour)
	tieDeadline := closedAt.Add(6 * time.Hour)
	reason := models.CloseReasonDeadline

	seeded := seedPoll(t, store, models.PollStatusOpen, monday, closedAt)
	require.NoError(t, store.Votes().Upsert(&models.Vote{PollID: seeded.ID, VoterJID: "@alice", SelectedOptions: []int{5}, UpdatedAt: monday}))
	require.NoError(t, store.Votes().Upsert(&models.Vote{PollID: seeded.ID, VoterJID: "@bob", SelectedOptions: []int{3}, UpdatedAt: monday}))
	require.NoError(t, store.Polls().SetTiePending(repositoriesTie(seeded.ID, reason, closedAt, tieDeadline, []int{3, 5})))

	f := newFixtureAt(t, tieDeadline.Add(time.Hour), store, testutil.NewTransport(), withQuorum(4))

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ClosedOverdue)

	announced := f.reload(seeded)
	assert.Equal(t, models.PollStatusAnnounced, announced.Status)
	assert.Equal(t, 3, *announced.WinningOptionIdx)
	assert.Equal(t, models.CloseReasonTieTimeout, *announced.CloseReason)
	assert.True(t, closedAt.Equal(*announced.ClosedAt))
}

func TestRecover_ReschedulesPendingTie(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))
	closedAt := monday.Add(48 * time.Hour)
	tieDeadline := closedAt.Add(6 * time.Hour)

	seeded := seedPoll(t, store, models.PollStatusOpen, monday, closedAt)
	require.NoError(t, store.Polls().SetTiePending(repositoriesTie(seeded.ID, models.CloseReasonDeadline, closedAt, tieDeadline, []int{4, 6})))

	f := newFixtureAt(t, closedAt.Add(time.Hour), store, testutil.NewTransport(), withQuorum(4))

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rescheduled)
	assert.Equal(t, models.PollStatusTiePending, f.reload(seeded).Status)

	f.clock.Advance(5 * time.Hour)
	announced := f.reload(seeded)
	assert.Equal(t, models.PollStatusAnnounced, announced.Status)
	assert.Equal(t, 4, *announced.WinningOptionIdx)
}

func TestRecover_CatchesUpMissedWeeklyPoll(t *testing.T) {
	monday := mondayNoon(berlin(t))
	f := newFixtureAt(t, monday.Add(26*time.Hour), testutil.NewStore(), testutil.NewTransport())

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.CaughtUp)

	poll, err := f.store.Polls().GetOneByWeekKey(groupID, "2026-W10")
	require.NoError(t, err)
	assert.Equal(t, models.PollStatusOpen, poll.Status)
}

func TestRecover_NoCatchUpBeforeCheckpoint(t *testing.T) {
	monday := mondayNoon(berlin(t))
	f := newFixtureAt(t, monday.Add(-3*time.Hour), testutil.NewStore(), testutil.NewTransport())

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.CaughtUp)
	assert.Empty(t, f.transport.Polls())
}

func TestRecover_DrainsOutboxBacklog(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))
	_, err := store.Outbox().Create(&models.OutboxMessage{
		GroupID:     groupID,
		Status:      models.OutboxStatusFailed,
		MaxAttempts: 3,
		NextRetryAt: monday.Add(-2 * time.Hour),
		CreatedAt:   monday.Add(-3 * time.Hour),
		Payload:     models.OutboxPayload{Kind: models.OutboxKindAnnouncement, Text: "left over"},
	})
	require.NoError(t, err)

	f := newFixtureAt(t, monday.Add(-time.Hour), store, testutil.NewTransport())

	_, err = f.service.Recover(context.Background())
	require.NoError(t, err)

	texts := f.transport.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "left over", texts[0].Text)
}

func TestRecover_SkipsCorruptPoll(t *testing.T) {
	store := testutil.NewStore()
	monday := mondayNoon(berlin(t))

	corrupt := store.Insert(&models.Poll{
		GroupID:       groupID,
		WeekKey:       "2026-W09",
		PollMessageID: "seed-0",
		Question:      "Which slot? (2026-W09)",
		Status:        models.PollStatusOpen,
		CreatedAt:     monday.Add(-7 * 24 * time.Hour),
		ClosesAt:      monday.Add(-5 * 24 * time.Hour),
		Options:       []models.PollOption{{Label: "Mon 23.02 19:00", Weekday: 1, Hour: 19, LocalID: "0"}},
	})
	store.CorruptPollOptions(corrupt.ID, "[{")
	poll := seedPoll(t, store, models.PollStatusOpen, monday, monday.Add(48*time.Hour))

	f := newFixtureAt(t, monday.Add(72*time.Hour), store, testutil.NewTransport(), withQuorum(5))

	stats, err := f.service.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Polls)
	assert.Equal(t, 1, stats.Corrupt)
	assert.Equal(t, 1, stats.ClosedOverdue)
	assert.Equal(t, models.PollStatusAnnounced, f.reload(poll).Status)
	assert.Len(t, f.transport.Texts(), 1)
}
