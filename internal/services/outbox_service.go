package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/db/repositories"
	"weekly_poll_bot/internal/metrics"

	"go.uber.org/zap"
)

type outboxService struct {
	groupID    string
	config     configs.Outbox
	repository repositories.OutboxRepository
	transport  ChatTransport
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	draining atomic.Bool

	mu      sync.Mutex
	wake    clock.Timer
	stopped bool
}

type OutboxService interface {
	// Enqueue persists the message and schedules a drain right away.
	Enqueue(kind models.OutboxKind, text string) (*models.OutboxMessage, error)
	// Prepare builds a pending message without storing it, for callers that
	// insert it inside their own transaction and then call Wake.
	Prepare(kind models.OutboxKind, text string) *models.OutboxMessage
	// Wake schedules a drain right away.
	Wake()
	// Drain delivers due messages until none are left. A call made while
	// another drain runs returns immediately.
	Drain(ctx context.Context)
	Stop()
}

func NewOutboxService(
	groupID string,
	config configs.Outbox,
	repository repositories.OutboxRepository,
	transport ChatTransport,
	c clock.Clock,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
) OutboxService {
	ctx, cancel := context.WithCancel(context.Background())

	return &outboxService{
		groupID:    groupID,
		config:     config,
		repository: repository,
		transport:  transport,
		clock:      c,
		metrics:    m,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *outboxService) Prepare(kind models.OutboxKind, text string) *models.OutboxMessage {
	now := s.clock.Now()

	return &models.OutboxMessage{
		GroupID:     s.groupID,
		Status:      models.OutboxStatusPending,
		MaxAttempts: s.config.MaxAttempts,
		NextRetryAt: now,
		CreatedAt:   now,
		Payload: models.OutboxPayload{
			Kind: kind,
			Text: text,
		},
	}
}

func (s *outboxService) Enqueue(kind models.OutboxKind, text string) (*models.OutboxMessage, error) {
	message, err := s.repository.Create(s.Prepare(kind, text))
	if err != nil {
		return nil, err
	}

	s.logger.Infow("outbox message enqueued", "outbox_id", message.ID, "kind", kind)
	s.Wake()

	return message, nil
}

func (s *outboxService) Wake() {
	s.scheduleWake(0)
}

func (s *outboxService) Drain(ctx context.Context) {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}

	errored := false
	defer func() {
		s.draining.Store(false)
		s.refreshSchedule(errored)
	}()

	attempted := make(map[int64]struct{})
	for ctx.Err() == nil {
		due, err := s.repository.GetDueIDs(s.groupID, s.clock.Now(), s.config.BatchSize)
		if err != nil {
			s.logger.Errorw("failed to load due outbox messages", "error", err)
			errored = true
			return
		}
		if len(due) == 0 {
			return
		}

		progressed := false
		for _, id := range due {
			if _, seen := attempted[id]; seen {
				continue
			}
			attempted[id] = struct{}{}
			progressed = true

			if !s.load(ctx, id) {
				errored = true
			}
		}

		// Rows that stay due after an attempt could not be updated.
		if !progressed {
			errored = true
			return
		}
	}
}

// load reports false when the message could neither be delivered nor put
// aside. A row that no longer decodes is made terminal so it stops being due.
func (s *outboxService) load(ctx context.Context, id int64) bool {
	message, err := s.repository.GetOne(id)

	var corrupt *models.CorruptionError
	switch {
	case errors.As(err, &corrupt):
		s.metrics.OutboxFailures.Inc()
		s.logger.Errorw("outbox message is corrupt, giving up", "outbox_id", id, "error", err)
		if err := s.repository.MarkCorrupt(id, err.Error()); err != nil {
			s.logger.Errorw("failed to mark outbox message corrupt", "outbox_id", id, "error", err)
			return false
		}
		return true
	case errors.Is(err, repositories.ErrNotFound):
		return true
	case err != nil:
		s.logger.Errorw("failed to load outbox message", "outbox_id", id, "error", err)
		return false
	}

	return s.deliver(ctx, message)
}

// deliver reports false when the outcome could not be persisted.
func (s *outboxService) deliver(ctx context.Context, message *models.OutboxMessage) bool {
	sendErr := callWithTimeout(ctx, s.config.SendTimeout, func(ctx context.Context) error {
		return s.transport.SendTextMessage(ctx, message.GroupID, message.Payload.Text)
	})

	now := s.clock.Now()
	if sendErr == nil {
		if err := s.repository.MarkSent(message.ID, now); err != nil {
			s.logger.Errorw("failed to mark outbox message sent", "outbox_id", message.ID, "error", err)
			return false
		}
		s.logger.Infow("outbox message sent", "outbox_id", message.ID, "kind", message.Payload.Kind)
		return true
	}

	s.metrics.OutboxFailures.Inc()
	attempt := message.AttemptCount + 1

	var nextRetryAt *time.Time
	if attempt < message.MaxAttempts {
		next := now.Add(Backoff(s.config.BaseDelay, s.config.MaxDelay, attempt))
		nextRetryAt = &next
		s.metrics.OutboxRetries.Inc()
		s.logger.Warnw("outbox delivery failed, will retry",
			"outbox_id", message.ID, "attempt", attempt, "next_retry_at", next, "error", sendErr)
	} else {
		s.logger.Errorw("outbox delivery failed, attempts exhausted",
			"outbox_id", message.ID, "attempt", attempt, "error", sendErr)
	}

	if err := s.repository.MarkFailed(message.ID, sendErr.Error(), nextRetryAt); err != nil {
		s.logger.Errorw("failed to mark outbox message failed", "outbox_id", message.ID, "error", err)
		return false
	}
	return true
}

func (s *outboxService) refreshSchedule(errored bool) {
	if count, err := s.repository.CountRetryable(s.groupID); err == nil {
		s.metrics.OutboxRetryable.Set(float64(count))
	}

	next, err := s.repository.NextRetryAt(s.groupID)
	if err != nil {
		s.logger.Errorw("failed to load next outbox retry", "error", err)
		s.scheduleWake(s.config.BaseDelay)
		return
	}
	if next == nil {
		s.cancelWake()
		return
	}

	delay := next.Sub(s.clock.Now())
	if errored && delay < s.config.BaseDelay {
		delay = s.config.BaseDelay
	}
	if delay < 0 {
		delay = 0
	}
	s.scheduleWake(delay)
}

func (s *outboxService) scheduleWake(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.wake != nil {
		s.wake.Stop()
	}
	s.wake = s.clock.AfterFunc(delay, func() {
		s.Drain(s.ctx)
	})
}

func (s *outboxService) cancelWake() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
}

func (s *outboxService) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
	s.mu.Unlock()

	s.cancel()
}
