package tgbot

import (
	"context"
	"errors"
	"time"

	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/health"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/tg_bot/handlers"

	"go.uber.org/zap"
)

// StartupHook runs once after recovery, before startup is marked complete.
type StartupHook func(ctx context.Context) error

type Dispatcher struct {
	groupID     string
	sendTimeout time.Duration
	pollService services.PollService
	handler     handlers.CommandHandler
	transport   services.ChatTransport
	state       *health.State
	metrics     *metrics.Metrics
	startup     StartupHook
	logger      *zap.SugaredLogger

	started bool
}

func NewDispatcher(
	groupID string,
	sendTimeout time.Duration,
	pollService services.PollService,
	handler handlers.CommandHandler,
	transport services.ChatTransport,
	state *health.State,
	metrics *metrics.Metrics,
	startup StartupHook,
	logger *zap.SugaredLogger,
) *Dispatcher {
	return &Dispatcher{
		groupID:     groupID,
		sendTimeout: sendTimeout,
		pollService: pollService,
		handler:     handler,
		transport:   transport,
		state:       state,
		metrics:     metrics,
		startup:     startup,
		logger:      logger,
	}
}

// Run handles events one at a time until ctx is done or in is closed.
func (d *Dispatcher) Run(ctx context.Context, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-in:
			if !ok {
				return
			}
			d.Handle(ctx, event)
		}
	}
}

func (d *Dispatcher) Handle(ctx context.Context, event events.Event) {
	switch e := event.(type) {
	case events.Ready:
		d.handleReady(ctx)

	case events.Disconnected:
		d.metrics.ClientDisconnects.Inc()
		d.state.SetConnected(false)
		d.logger.Warnw("chat client disconnected", "error", e.Err)

	case events.VoteUpdate:
		d.check(d.pollService.HandleVote(ctx, e), "failed to handle vote", "poll_message_id", e.PollMessageID)

	case events.MessageCreate:
		d.handleMessage(ctx, e)

	case events.WeeklyTrigger:
		poll, err := d.pollService.HandleWeeklyTrigger(ctx)
		switch {
		case errors.Is(err, services.ErrActivePollExists), errors.Is(err, services.ErrPollExistsForWeek):
			d.logger.Infow("weekly trigger skipped", "reason", err.Error())
		case err != nil:
			d.check(err, "weekly poll creation failed")
		case poll != nil:
			d.logger.Infow("weekly poll created", "poll_id", poll.ID, "week_key", poll.WeekKey)
		}

	default:
		d.logger.Warnw("unknown event", "event", event)
	}
}

func (d *Dispatcher) handleReady(ctx context.Context) {
	d.state.SetConnected(true)

	if d.started {
		d.metrics.ClientReconnects.Inc()
		d.logger.Info("chat client reconnected")
		return
	}
	d.started = true

	if _, err := d.pollService.Recover(ctx); err != nil {
		d.state.SetUnhealthy(true)
		d.logger.Errorw("startup recovery failed", "error", err)
	}

	if d.startup != nil {
		d.check(d.startup(ctx), "startup hook failed")
	}

	d.state.SetStartupComplete()
	d.logger.Info("startup complete")
}

func (d *Dispatcher) handleMessage(ctx context.Context, message events.MessageCreate) {
	reply := d.handler.Handle(ctx, message)
	if reply == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.transport.SendTextMessage(ctx, d.groupID, reply); err != nil {
		d.logger.Errorw("failed to send command reply", "error", err)
	}
}

// check logs err. An inconsistency between the chat and the store needs an
// operator, so it also marks the process unhealthy.
func (d *Dispatcher) check(err error, message string, keysAndValues ...interface{}) {
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrInconsistentState) {
		d.state.SetUnhealthy(true)
	}
	d.logger.Errorw(message, append(keysAndValues, "error", err)...)
}
