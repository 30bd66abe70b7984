package services_test

import (
	"context"
	"testing"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/db/repositories"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/testutil"
	"weekly_poll_bot/internal/week"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const groupID = "group-1"

func berlin(t *testing.T) *time.Location {
	t.Helper()
	location, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return location
}

type fixture struct {
	t         *testing.T
	location  *time.Location
	clock     *clock.FakeClock
	store     *testutil.Store
	transport *testutil.Transport
	metrics   *metrics.Metrics
	outbox    services.OutboxService
	service   services.PollService
	config    services.PollServiceConfig
}

type option func(*services.PollServiceConfig, *configs.Outbox)

func withQuorum(n int) option {
	return func(c *services.PollServiceConfig, _ *configs.Outbox) {
		c.RequiredVoters = n
	}
}

func withSendTimeout(d time.Duration) option {
	return func(c *services.PollServiceConfig, _ *configs.Outbox) {
		c.SendTimeout = d
	}
}

func withOutbox(f func(*configs.Outbox)) option {
	return func(_ *services.PollServiceConfig, o *configs.Outbox) {
		f(o)
	}
}

// Monday of 2026-W10, at the weekly checkpoint.
func mondayNoon(location *time.Location) time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, location)
}

func newFixture(t *testing.T, opts ...option) *fixture {
	return newFixtureAt(t, mondayNoon(berlin(t)), testutil.NewStore(), testutil.NewTransport(), opts...)
}

func newFixtureAt(t *testing.T, now time.Time, store *testutil.Store, transport *testutil.Transport, opts ...option) *fixture {
	t.Helper()

	location := berlin(t)
	fake := clock.Fake(now)
	logger := zap.NewNop().Sugar()
	m := metrics.NewUnregistered(fake)

	config := services.PollServiceConfig{
		GroupID:        groupID,
		OwnerID:        "@owner",
		Location:       location,
		Template:       week.DefaultTemplate(),
		Question:       "Which slot?",
		RequiredVoters: 2,
		CloseAfter:     48 * time.Hour,
		TieWindow:      6 * time.Hour,
		MaxTimerDelay:  24 * time.Hour,
		SendTimeout:    time.Second,
		CommandPrefix:  "!poll",
	}
	outboxConfig := configs.Outbox{
		BaseDelay:   5 * time.Second,
		MaxDelay:    time.Minute,
		MaxAttempts: 3,
		SendTimeout: time.Second,
		BatchSize:   2,
	}
	for _, opt := range opts {
		opt(&config, &outboxConfig)
	}

	outbox := services.NewOutboxService(groupID, outboxConfig, store.Outbox(), transport, fake, m, logger)
	identities := services.NewIdentityResolver(
		[]string{"@alice", "@bob", "@carol", "@dave", "@erin"}, transport, logger)

	service := services.NewPollService(config, services.PollServiceDeps{
		Polls:      store.Polls(),
		Votes:      store.Votes(),
		Outbox:     outbox,
		Transport:  transport,
		Fetcher:    transport,
		Identities: identities,
		Clock:      fake,
		Metrics:    m,
		Logger:     logger,
	})
	t.Cleanup(func() {
		service.Shutdown()
		outbox.Stop()
	})

	return &fixture{
		t:         t,
		location:  location,
		clock:     fake,
		store:     store,
		transport: transport,
		metrics:   m,
		outbox:    outbox,
		service:   service,
		config:    config,
	}
}

func (f *fixture) create() *models.Poll {
	f.t.Helper()
	poll, err := f.service.CreateCurrent(context.Background())
	require.NoError(f.t, err)
	return poll
}

func (f *fixture) vote(poll *models.Poll, voter string, selections ...string) {
	f.t.Helper()
	require.NoError(f.t, f.service.HandleVote(context.Background(), events.VoteUpdate{
		PollMessageID: poll.PollMessageID,
		VoterRef:      voter,
		Selections:    selections,
	}))
}

func (f *fixture) reload(poll *models.Poll) *models.Poll {
	f.t.Helper()
	reloaded, err := f.store.Polls().GetOne(poll.ID)
	require.NoError(f.t, err)
	return reloaded
}

// settle runs callbacks that were scheduled without delay, such as the
// drain that follows an enqueue.
func (f *fixture) settle() {
	f.clock.Advance(0)
}

func eventsFor(pollMessageID, voter string, selections ...string) events.VoteUpdate {
	return events.VoteUpdate{PollMessageID: pollMessageID, VoterRef: voter, Selections: selections}
}

func repositoriesTie(pollID int64, reason models.CloseReason, closedAt, deadline time.Time, tied []int) repositories.TiePendingUpdate {
	return repositories.TiePendingUpdate{
		PollID:           pollID,
		Reason:           reason,
		ClosedAt:         closedAt,
		TieDeadlineAt:    deadline,
		TieOptionIndices: tied,
	}
}
