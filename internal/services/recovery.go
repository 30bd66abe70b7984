package services

import (
	"context"
	"errors"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/week"
)

type ReconcileStats struct {
	Polls            int
	Fetched          int
	Upserted         int
	Skipped          map[string]int
	FetchUnsupported bool
	ClosedByQuorum   int
	ClosedOverdue    int
	Rescheduled      int
	Corrupt          int
	CaughtUp         bool
}

// Recover runs once before live events are handled. Votes missed while
// offline are reconciled first, so quorum wins over a deadline that passed
// in the meantime. Timers are rebuilt from persisted deadlines.
func (s *pollService) Recover(ctx context.Context) (ReconcileStats, error) {
	stats := ReconcileStats{Skipped: make(map[string]int)}

	ids, err := s.Polls.GetRecoverableIDs(s.config.GroupID)
	if err != nil {
		return stats, err
	}
	stats.Polls = len(ids)
	if len(ids) > 1 {
		s.Logger.Warnw("more than one active poll found", "count", len(ids))
	}

	polls := s.loadRecoverable(ids, &stats)

	s.reconcileVotes(ctx, polls, &stats)

	for _, recoverable := range polls {
		poll, err := s.Polls.GetOne(recoverable.ID)
		if err == nil {
			err = s.recoverPoll(ctx, poll, &stats)
		}
		if err != nil {
			s.Logger.Errorw("failed to recover poll", "poll_id", recoverable.ID, "error", err)
		}
	}

	if poll, err := s.catchUpWeekly(ctx); err != nil {
		s.Logger.Errorw("weekly catch-up failed", "error", err)
	} else if poll != nil {
		stats.CaughtUp = true
	}

	s.refreshActiveGauge()
	s.Outbox.Drain(ctx)

	s.Logger.Infow("startup recovery complete",
		"polls", stats.Polls,
		"fetched", stats.Fetched,
		"upserted", stats.Upserted,
		"skipped", stats.Skipped,
		"fetch_unsupported", stats.FetchUnsupported,
		"closed_by_quorum", stats.ClosedByQuorum,
		"closed_overdue", stats.ClosedOverdue,
		"rescheduled", stats.Rescheduled,
		"corrupt", stats.Corrupt,
		"caught_up", stats.CaughtUp,
	)

	return stats, nil
}

// loadRecoverable skips rows that fail to load. A corrupt poll is left as is
// for an operator; the others still recover.
func (s *pollService) loadRecoverable(ids []int64, stats *ReconcileStats) []*models.Poll {
	polls := make([]*models.Poll, 0, len(ids))
	for _, id := range ids {
		poll, err := s.Polls.GetOne(id)

		var corrupt *models.CorruptionError
		switch {
		case errors.As(err, &corrupt):
			stats.Corrupt++
			s.Logger.Errorw("skipping corrupt poll", "poll_id", id, "error", err)
		case err != nil:
			s.Logger.Errorw("failed to load poll for recovery", "poll_id", id, "error", err)
		default:
			polls = append(polls, poll)
		}
	}
	return polls
}

func (s *pollService) reconcileVotes(ctx context.Context, polls []*models.Poll, stats *ReconcileStats) {
	if s.Fetcher == nil {
		stats.FetchUnsupported = true
		s.Logger.Warnw("vote reconciliation skipped", "reason", "no vote fetcher")
		return
	}

	for _, poll := range polls {
		updates, err := s.Fetcher.FetchVotes(ctx, poll)
		if errors.Is(err, ErrUnsupported) {
			stats.FetchUnsupported = true
			s.Logger.Warnw("vote reconciliation skipped", "reason", err.Error())
			return
		}
		if err != nil {
			s.Logger.Warnw("failed to fetch votes", "poll_id", poll.ID, "error", err)
			continue
		}

		for _, update := range updates {
			stats.Fetched++
			skipped, err := s.applyVote(ctx, poll, update)
			if err != nil {
				s.Logger.Errorw("failed to reconcile vote", "poll_id", poll.ID, "error", err)
				continue
			}
			if skipped != "" {
				stats.Skipped[skipped]++
				continue
			}
			stats.Upserted++
		}
	}
}

func (s *pollService) recoverPoll(ctx context.Context, poll *models.Poll, stats *ReconcileStats) error {
	now := s.Clock.Now()

	switch poll.Status {
	case models.PollStatusOpen:
		reached, err := s.quorumReached(poll.ID, len(poll.Options))
		if err != nil {
			return err
		}
		if reached {
			stats.ClosedByQuorum++
			return s.ClosePoll(ctx, poll.ID, models.CloseReasonQuorum)
		}
		if !now.Before(poll.ClosesAt) {
			stats.ClosedOverdue++
			return s.ClosePoll(ctx, poll.ID, models.CloseReasonDeadline)
		}

	case models.PollStatusTiePending:
		if poll.TieDeadlineAt == nil || !now.Before(*poll.TieDeadlineAt) {
			stats.ClosedOverdue++
			return s.HandleTieTimeout(ctx, poll.ID)
		}

	default:
		return nil
	}

	s.scheduleFor(poll)
	stats.Rescheduled++
	return nil
}

// catchUpWeekly creates the current week's poll when the weekly checkpoint
// passed while the process was down.
func (s *pollService) catchUpWeekly(ctx context.Context) (*models.Poll, error) {
	now := s.Clock.Now()
	current := week.Current(s.config.Location, now)
	if now.Before(week.ScheduledRun(s.config.Location, current.Year, current.Number)) {
		return nil, nil
	}

	poll, err := s.HandleWeeklyTrigger(ctx)
	if isWeeklyGuard(err) {
		return nil, nil
	}
	return poll, err
}
