package metrics

import (
	"weekly_poll_bot/internal/clock"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weekly_poll"

type Metrics struct {
	PollsCreated      prometheus.Counter
	PollsClosed       *prometheus.CounterVec
	QuorumCloses      prometheus.Counter
	TieFlows          prometheus.Counter
	VotesSkipped      *prometheus.CounterVec
	OutboxFailures    prometheus.Counter
	OutboxRetries     prometheus.Counter
	ClientDisconnects prometheus.Counter
	ClientReconnects  prometheus.Counter
	ActivePolls       prometheus.Gauge
	OutboxRetryable   prometheus.Gauge
}

// New registers every collector on registerer. Uptime is measured from the
// moment New is called.
func New(registerer prometheus.Registerer, c clock.Clock) *Metrics {
	startedAt := c.Now()

	m := &Metrics{
		PollsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_created_total",
			Help:      "Polls sent to the group and persisted.",
		}),
		PollsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_closed_total",
			Help:      "Polls announced, by close reason.",
		}, []string{"reason"}),
		QuorumCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_quorum_closes_total",
			Help:      "Polls closed because the quorum was reached.",
		}),
		TieFlows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_tie_flows_total",
			Help:      "Polls that entered the tie window.",
		}),
		VotesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_skipped_total",
			Help:      "Vote updates ignored, by reason.",
		}, []string{"reason"}),
		OutboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Failed outbox delivery attempts.",
		}),
		OutboxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retries_total",
			Help:      "Outbox deliveries scheduled for another attempt.",
		}),
		ClientDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_disconnects_total",
			Help:      "Chat connection losses.",
		}),
		ClientReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_reconnects_total",
			Help:      "Chat connection recoveries after the first ready event.",
		}),
		ActivePolls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_polls",
			Help:      "Polls currently open or waiting for a tie break.",
		}),
		OutboxRetryable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_retryable_messages",
			Help:      "Outbox messages that still have delivery attempts left.",
		}),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_uptime_seconds",
		Help:      "Seconds since the process started.",
	}, func() float64 {
		return c.Now().Sub(startedAt).Seconds()
	})

	registerer.MustRegister(
		m.PollsCreated,
		m.PollsClosed,
		m.QuorumCloses,
		m.TieFlows,
		m.VotesSkipped,
		m.OutboxFailures,
		m.OutboxRetries,
		m.ClientDisconnects,
		m.ClientReconnects,
		m.ActivePolls,
		m.OutboxRetryable,
		uptime,
	)

	return m
}

// NewUnregistered is meant for tests that do not scrape.
func NewUnregistered(c clock.Clock) *Metrics {
	return New(prometheus.NewRegistry(), c)
}
