package tgbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/health"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/services"
	mock_services "weekly_poll_bot/internal/services/mocks"
	"weekly_poll_bot/internal/testutil"
	"weekly_poll_bot/internal/week"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type staticHandler struct {
	reply string
}

func (h staticHandler) Handle(context.Context, events.MessageCreate) string {
	return h.reply
}

type dispatcherFixture struct {
	dispatcher  *Dispatcher
	pollService *mock_services.MockPollService
	transport   *mock_services.MockChatTransport
	state       *health.State
	metrics     *metrics.Metrics
	hookCalls   int
}

func newDispatcherFixture(t *testing.T, reply string, hookErr error) *dispatcherFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &dispatcherFixture{
		pollService: mock_services.NewMockPollService(ctrl),
		transport:   mock_services.NewMockChatTransport(ctrl),
		state:       &health.State{},
		metrics:     metrics.NewUnregistered(clock.Fake(time.Now())),
	}

	hook := func(context.Context) error {
		f.hookCalls++
		return hookErr
	}

	f.dispatcher = NewDispatcher(testGroupID, time.Second, f.pollService, staticHandler{reply: reply},
		f.transport, f.state, f.metrics, hook, zap.NewNop().Sugar())
	return f
}

func TestDispatcher_FirstReadyRunsStartup(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)
	ctx := context.Background()

	f.pollService.EXPECT().Recover(gomock.Any()).Return(services.ReconcileStats{}, nil).Times(1)

	assert.False(t, f.state.Ready())
	f.dispatcher.Handle(ctx, events.Ready{})

	assert.True(t, f.state.Ready())
	assert.Equal(t, 1, f.hookCalls)

	f.dispatcher.Handle(ctx, events.Disconnected{Err: errors.New("socket closed")})
	assert.False(t, f.state.Ready())
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.ClientDisconnects))

	f.dispatcher.Handle(ctx, events.Ready{})
	assert.True(t, f.state.Ready())
	assert.Equal(t, 1, f.hookCalls)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(f.metrics.ClientReconnects))
}

func TestDispatcher_RecoveryFailureMarksUnhealthy(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)

	f.pollService.EXPECT().Recover(gomock.Any()).Return(services.ReconcileStats{}, errors.New("db down"))

	f.dispatcher.Handle(context.Background(), events.Ready{})
	assert.False(t, f.state.Ready())
	assert.True(t, f.state.Live())
}

func TestDispatcher_InconsistentStartupHookMarksUnhealthy(t *testing.T) {
	f := newDispatcherFixture(t, "", services.ErrInconsistentState)

	f.pollService.EXPECT().Recover(gomock.Any()).Return(services.ReconcileStats{}, nil)

	f.dispatcher.Handle(context.Background(), events.Ready{})
	assert.False(t, f.state.Ready())
}

func TestDispatcher_VoteUpdate(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)
	update := events.VoteUpdate{PollMessageID: "5001", VoterRef: "@alice", Selections: []string{"0"}}

	f.pollService.EXPECT().HandleVote(gomock.Any(), update).Return(nil)

	f.dispatcher.Handle(context.Background(), update)
}

func TestDispatcher_MessageReply(t *testing.T) {
	f := newDispatcherFixture(t, "pong", nil)

	f.transport.EXPECT().SendTextMessage(gomock.Any(), testGroupID, "pong").Return(nil)

	f.dispatcher.Handle(context.Background(), events.MessageCreate{ChatID: testGroupID, Body: "!poll help"})
}

func TestDispatcher_MessageWithoutReply(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)

	f.dispatcher.Handle(context.Background(), events.MessageCreate{ChatID: testGroupID, Body: "hello"})
}

func TestDispatcher_WeeklyTrigger(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)
	ctx := context.Background()

	gomock.InOrder(
		f.pollService.EXPECT().HandleWeeklyTrigger(gomock.Any()).Return(&models.Poll{ID: 1, WeekKey: "2026-W10"}, nil),
		f.pollService.EXPECT().HandleWeeklyTrigger(gomock.Any()).Return(nil, services.ErrActivePollExists),
	)

	f.dispatcher.Handle(ctx, events.WeeklyTrigger{At: time.Now()})
	f.dispatcher.Handle(ctx, events.WeeklyTrigger{At: time.Now()})
}

func TestDispatcher_WeeklyTriggerWithExistingPoll(t *testing.T) {
	location, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	fake := clock.Fake(time.Date(2026, 3, 2, 12, 0, 0, 0, location))
	logger := zap.NewNop().Sugar()
	m := metrics.NewUnregistered(fake)
	store := testutil.NewStore()
	transport := testutil.NewTransport()

	outbox := services.NewOutboxService(testGroupID, configs.Outbox{MaxAttempts: 3, BatchSize: 10, SendTimeout: time.Second}, store.Outbox(), transport, fake, m, logger)
	pollService := services.NewPollService(services.PollServiceConfig{
		GroupID:        testGroupID,
		Location:       location,
		Template:       week.DefaultTemplate(),
		Question:       "Which slot?",
		RequiredVoters: 2,
		CloseAfter:     48 * time.Hour,
		TieWindow:      6 * time.Hour,
		MaxTimerDelay:  24 * time.Hour,
		SendTimeout:    time.Second,
	}, services.PollServiceDeps{
		Polls:      store.Polls(),
		Votes:      store.Votes(),
		Outbox:     outbox,
		Transport:  transport,
		Identities: services.NewIdentityResolver([]string{"@alice"}, transport, logger),
		Clock:      fake,
		Metrics:    m,
		Logger:     logger,
	})
	t.Cleanup(func() {
		pollService.Shutdown()
		outbox.Stop()
	})

	_, err = pollService.CreateCurrent(context.Background())
	require.NoError(t, err)

	state := &health.State{}
	dispatcher := NewDispatcher(testGroupID, time.Second, pollService, staticHandler{}, transport, state, m, nil, logger)

	assert.NotPanics(t, func() {
		dispatcher.Handle(context.Background(), events.WeeklyTrigger{At: fake.Now()})
	})
	assert.Len(t, transport.Polls(), 1)
	assert.True(t, state.Live())

	count, err := store.Polls().CountActive(testGroupID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatcher_RunStopsWhenChannelCloses(t *testing.T) {
	f := newDispatcherFixture(t, "", nil)
	update := events.VoteUpdate{PollMessageID: "5001", VoterRef: "@bob"}

	f.pollService.EXPECT().HandleVote(gomock.Any(), update).Return(nil)

	in := make(chan events.Event, 1)
	in <- update
	close(in)

	f.dispatcher.Run(context.Background(), in)
}
