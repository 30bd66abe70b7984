package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/db/repositories"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/metrics"
	"weekly_poll_bot/internal/week"

	"go.uber.org/zap"
)

// busyTimerRetry is how long an expired deadline waits before the next try
// when the poll was busy or the transition failed.
const busyTimerRetry = 30 * time.Second

const (
	skipUnknownPoll    = "unknown_poll"
	skipPollNotOpen    = "poll_not_open"
	skipInvalidVoter   = "invalid_voter"
	skipNotAllowlisted = "not_allowlisted"
	skipNoKnownOptions = "no_known_options"
	discardUnknownOpt  = "unknown_option"
)

type PollServiceConfig struct {
	GroupID        string
	OwnerID        string
	Location       *time.Location
	Template       []week.Slot
	Question       string
	RequiredVoters int
	CloseAfter     time.Duration
	TieWindow      time.Duration
	MaxTimerDelay  time.Duration
	SendTimeout    time.Duration
	CommandPrefix  string
}

type PollServiceDeps struct {
	Polls      repositories.PollRepository
	Votes      repositories.VoteRepository
	Outbox     OutboxService
	Transport  ChatTransport
	Fetcher    VoteFetcher
	Identities *IdentityResolver
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Logger     *zap.SugaredLogger
}

// Sender identifies who issued a command. Either field may match the owner.
type Sender struct {
	ID       string
	Username string
}

type StatusReport struct {
	Poll           *models.Poll
	Tally          Tally
	RequiredVoters int
	Now            time.Time
}

type pollService struct {
	config PollServiceConfig
	PollServiceDeps

	locks  *pollLocks
	timers *timerRegistry

	ctx    context.Context
	cancel context.CancelFunc
}

// PollService is safe for concurrent use. Transitions on one poll are
// serialized by a non-blocking per-poll lock; a caller that loses the race
// gets ErrInProgress.
type PollService interface {
	CreateCurrent(ctx context.Context) (*models.Poll, error)
	CreateForWeek(ctx context.Context, target week.Context) (*models.Poll, error)
	Replace(ctx context.Context, target week.Context) (*models.Poll, error)
	HandleWeeklyTrigger(ctx context.Context) (*models.Poll, error)
	HandleVote(ctx context.Context, update events.VoteUpdate) error
	ClosePoll(ctx context.Context, pollID int64, reason models.CloseReason) error
	HandleTieTimeout(ctx context.Context, pollID int64) error
	ManualPick(ctx context.Context, sender Sender, optionNumber int) (*models.Poll, error)
	Status(ctx context.Context) (StatusReport, error)
	Recover(ctx context.Context) (ReconcileStats, error)
	Shutdown()
}

func NewPollService(config PollServiceConfig, deps PollServiceDeps) PollService {
	ctx, cancel := context.WithCancel(context.Background())

	return &pollService{
		config:          config,
		PollServiceDeps: deps,
		locks:           newPollLocks(),
		timers:          newTimerRegistry(deps.Clock, config.MaxTimerDelay),
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (s *pollService) CreateCurrent(ctx context.Context) (*models.Poll, error) {
	return s.CreateForWeek(ctx, week.Current(s.config.Location, s.Clock.Now()))
}

func (s *pollService) CreateForWeek(ctx context.Context, target week.Context) (*models.Poll, error) {
	if !week.IsCurrentOrFuture(s.config.Location, target.Year, target.Number, s.Clock.Now()) {
		return nil, ErrPastWeek
	}

	if _, err := s.Polls.GetActive(s.config.GroupID); err == nil {
		return nil, ErrActivePollExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if _, err := s.Polls.GetOneByWeekKey(s.config.GroupID, target.Key); err == nil {
		return nil, ErrPollExistsForWeek
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	poll, err := s.sendPoll(ctx, target)
	if err != nil {
		return nil, err
	}

	created, err := s.Polls.Create(poll)
	if err != nil {
		s.Logger.Errorw("poll message sent but not persisted",
			"week_key", poll.WeekKey, "poll_message_id", poll.PollMessageID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	s.Metrics.PollsCreated.Inc()
	s.refreshActiveGauge()
	s.scheduleClose(created)

	s.Logger.Infow("poll created",
		"poll_id", created.ID, "week_key", created.WeekKey, "closes_at", created.ClosesAt)

	return created, nil
}

// Replace sends a fresh poll for a week that already has one and resets the
// existing row in place, dropping its votes.
func (s *pollService) Replace(ctx context.Context, target week.Context) (*models.Poll, error) {
	existing, err := s.Polls.GetOneByWeekKey(s.config.GroupID, target.Key)
	if errors.Is(err, repositories.ErrNotFound) {
		return s.CreateForWeek(ctx, target)
	}
	if err != nil {
		return nil, err
	}

	if !week.IsCurrentOrFuture(s.config.Location, target.Year, target.Number, s.Clock.Now()) {
		return nil, ErrPastWeek
	}

	if active, err := s.Polls.GetActive(s.config.GroupID); err == nil && active.ID != existing.ID {
		return nil, ErrActivePollExists
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if !s.locks.TryLock(existing.ID) {
		return nil, ErrInProgress
	}
	defer s.locks.Unlock(existing.ID)

	s.timers.Cancel(existing.ID)

	poll, err := s.sendPoll(ctx, target)
	if err != nil {
		s.scheduleFor(existing)
		return nil, err
	}
	poll.ID = existing.ID

	if err := s.Polls.ReplaceInPlace(poll); err != nil {
		s.Logger.Errorw("replacement poll sent but not persisted",
			"poll_id", existing.ID, "poll_message_id", poll.PollMessageID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	s.Metrics.PollsCreated.Inc()
	s.refreshActiveGauge()
	s.scheduleClose(poll)

	s.Logger.Infow("poll replaced in place",
		"poll_id", poll.ID, "week_key", poll.WeekKey, "previous_message_id", existing.PollMessageID)

	return s.Polls.GetOne(poll.ID)
}

func (s *pollService) sendPoll(ctx context.Context, target week.Context) (*models.Poll, error) {
	options := week.BuildOptions(s.config.Location, target.Year, target.Number, s.config.Template)
	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Label)
	}

	question := fmt.Sprintf("%s (%s)", s.config.Question, target.Key)

	var sent SentPoll
	err := callWithTimeout(ctx, s.config.SendTimeout, func(ctx context.Context) error {
		var err error
		sent, err = s.Transport.SendPollMessage(ctx, s.config.GroupID, question, labels)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.Logger.Errorw("poll send did not complete, message may exist in the chat",
			"week_key", target.Key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to send poll: %w", err)
	}

	if sent.MessageID == "" || len(sent.OptionIDs) != len(options) {
		s.Logger.Errorw("poll message sent with unusable identifiers",
			"week_key", target.Key, "poll_message_id", sent.MessageID,
			"options", len(options), "option_ids", len(sent.OptionIDs))
		return nil, fmt.Errorf("%w: transport returned %d option ids for %d options",
			ErrInconsistentState, len(sent.OptionIDs), len(options))
	}

	pollOptions := make([]models.PollOption, 0, len(options))
	for i, option := range options {
		pollOptions = append(pollOptions, models.PollOption{
			Label:   option.Label,
			Weekday: option.Weekday,
			Hour:    option.Hour,
			Minute:  option.Minute,
			LocalID: sent.OptionIDs[i],
		})
	}

	now := s.Clock.Now()
	return &models.Poll{
		GroupID:       s.config.GroupID,
		WeekKey:       target.Key,
		PollMessageID: sent.MessageID,
		Question:      question,
		Status:        models.PollStatusOpen,
		CreatedAt:     now,
		ClosesAt:      now.Add(s.config.CloseAfter),
		Options:       pollOptions,
	}, nil
}

// HandleWeeklyTrigger returns ErrActivePollExists or ErrPollExistsForWeek
// when the week needs no new poll. The poll is non-nil only when err is nil.
func (s *pollService) HandleWeeklyTrigger(ctx context.Context) (*models.Poll, error) {
	poll, err := s.CreateCurrent(ctx)
	if isWeeklyGuard(err) {
		s.Logger.Infow("weekly poll not created", "reason", err.Error())
	}
	return poll, err
}

func isWeeklyGuard(err error) bool {
	return errors.Is(err, ErrActivePollExists) || errors.Is(err, ErrPollExistsForWeek)
}

func (s *pollService) HandleVote(ctx context.Context, update events.VoteUpdate) error {
	poll, err := s.Polls.GetOneByMessageID(s.config.GroupID, update.PollMessageID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.skipVote(skipUnknownPoll, update)
		return nil
	}
	if err != nil {
		return err
	}

	skipped, err := s.applyVote(ctx, poll, update)
	if err != nil || skipped != "" {
		return err
	}

	return s.closeOnQuorum(ctx, poll.ID)
}

// applyVote returns the skip reason, or an empty string when the vote was
// stored.
func (s *pollService) applyVote(ctx context.Context, poll *models.Poll, update events.VoteUpdate) (string, error) {
	if poll.Status != models.PollStatusOpen {
		s.skipVote(skipPollNotOpen, update)
		return skipPollNotOpen, nil
	}

	voter, allowed := s.Identities.Resolve(ctx, update.VoterRef)
	if voter == "" {
		s.skipVote(skipInvalidVoter, update)
		return skipInvalidVoter, nil
	}
	if !allowed {
		s.skipVote(skipNotAllowlisted, update)
		return skipNotAllowlisted, nil
	}

	indices := make([]int, 0, len(update.Selections))
	for _, localID := range update.Selections {
		idx, ok := poll.OptionIndexByLocalID(localID)
		if !ok {
			s.Logger.Infow("discarded vote selection",
				"reason", discardUnknownOpt, "poll_id", poll.ID, "voter", voter, "local_id", localID)
			continue
		}
		indices = append(indices, idx)
	}
	if len(update.Selections) > 0 && len(indices) == 0 {
		s.skipVote(skipNoKnownOptions, update)
		return skipNoKnownOptions, nil
	}

	vote := &models.Vote{
		PollID:          poll.ID,
		VoterJID:        voter,
		SelectedOptions: models.NormalizeSelection(indices, len(poll.Options)),
		UpdatedAt:       s.Clock.Now(),
	}
	if err := s.Votes.Upsert(vote); err != nil {
		return "", fmt.Errorf("failed to store vote: %w", err)
	}

	s.Logger.Infow("vote recorded", "poll_id", poll.ID, "voter", voter, "selected", vote.SelectedOptions)
	return "", nil
}

func (s *pollService) skipVote(reason string, update events.VoteUpdate) {
	s.Metrics.VotesSkipped.WithLabelValues(reason).Inc()
	s.Logger.Infow("skipped vote",
		"reason", reason, "poll_message_id", update.PollMessageID, "voter", update.VoterRef)
}

func (s *pollService) quorumReached(pollID int64, optionCount int) (bool, error) {
	votes, err := s.Votes.GetManyByPoll(pollID)
	if err != nil {
		return false, err
	}
	return ComputeTally(optionCount, votes).Voters >= s.config.RequiredVoters, nil
}

func (s *pollService) closeOnQuorum(ctx context.Context, pollID int64) error {
	poll, err := s.Polls.GetOne(pollID)
	if err != nil {
		return err
	}

	reached, err := s.quorumReached(poll.ID, len(poll.Options))
	if err != nil || !reached {
		return err
	}

	err = s.ClosePoll(ctx, poll.ID, models.CloseReasonQuorum)
	if errors.Is(err, ErrInProgress) || errors.Is(err, ErrNotOpen) {
		s.Logger.Infow("quorum close skipped", "poll_id", poll.ID, "reason", err.Error())
		return nil
	}
	return err
}

func (s *pollService) ClosePoll(ctx context.Context, pollID int64, reason models.CloseReason) error {
	if !s.locks.TryLock(pollID) {
		return ErrInProgress
	}
	defer s.locks.Unlock(pollID)

	poll, err := s.Polls.GetOne(pollID)
	if err != nil {
		return err
	}
	if poll.Status != models.PollStatusOpen {
		return ErrNotOpen
	}

	votes, err := s.Votes.GetManyByPoll(poll.ID)
	if err != nil {
		return err
	}

	tally := ComputeTally(len(poll.Options), votes)
	leaders, count := tally.Leaders()
	now := s.Clock.Now()

	switch len(leaders) {
	case 0:
		return s.finalize(poll, nil, 0, reason, now)
	case 1:
		winner := leaders[0]
		return s.finalize(poll, &winner, count, reason, now)
	}

	tieDeadline := now.Add(s.config.TieWindow)
	text := tieNoticeText(poll, leaders, count, s.config.CommandPrefix, s.config.TieWindow)
	err = s.Polls.SetTiePending(repositories.TiePendingUpdate{
		PollID:           poll.ID,
		Reason:           reason,
		ClosedAt:         now,
		TieDeadlineAt:    tieDeadline,
		TieOptionIndices: leaders,
		Notice:           s.Outbox.Prepare(models.OutboxKindTieNotice, text),
	})
	if err != nil {
		return err
	}

	s.timers.Cancel(poll.ID)
	s.Metrics.TieFlows.Inc()
	s.Logger.Infow("poll tied", "poll_id", poll.ID, "tied", leaders, "votes", count, "tie_deadline_at", tieDeadline)

	s.Outbox.Wake()
	s.scheduleTie(poll.ID, tieDeadline)
	return nil
}

func (s *pollService) HandleTieTimeout(ctx context.Context, pollID int64) error {
	if !s.locks.TryLock(pollID) {
		return ErrInProgress
	}
	defer s.locks.Unlock(pollID)

	poll, err := s.Polls.GetOne(pollID)
	if err != nil {
		return err
	}
	if poll.Status != models.PollStatusTiePending {
		return ErrNoTiePending
	}

	counts, err := s.counts(poll)
	if err != nil {
		return err
	}

	tied := poll.TieOptionIndices
	if len(tied) == 0 {
		tied, _ = Tally{Counts: counts}.Leaders()
	}
	if len(tied) == 0 {
		return s.finalize(poll, nil, 0, models.CloseReasonTieTimeout, s.Clock.Now())
	}

	winner := tied[0]
	for _, idx := range tied[1:] {
		if idx < winner {
			winner = idx
		}
	}

	return s.finalize(poll, &winner, counts[winner], models.CloseReasonTieTimeout, s.Clock.Now())
}

func (s *pollService) ManualPick(ctx context.Context, sender Sender, optionNumber int) (*models.Poll, error) {
	if !s.isOwner(sender) {
		return nil, ErrNotOwner
	}

	active, err := s.Polls.GetActive(s.config.GroupID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoTiePending
	}
	if err != nil {
		return nil, err
	}
	if active.Status != models.PollStatusTiePending {
		return nil, ErrNoTiePending
	}

	if !s.locks.TryLock(active.ID) {
		return nil, ErrInProgress
	}
	defer s.locks.Unlock(active.ID)

	poll, err := s.Polls.GetOne(active.ID)
	if err != nil {
		return nil, err
	}
	if poll.Status != models.PollStatusTiePending {
		return nil, ErrNoTiePending
	}

	winner := optionNumber - 1
	tied := false
	for _, idx := range poll.TieOptionIndices {
		if idx == winner {
			tied = true
			break
		}
	}
	if !tied {
		return nil, ErrOptionNotTied
	}

	counts, err := s.counts(poll)
	if err != nil {
		return nil, err
	}

	if err := s.finalize(poll, &winner, counts[winner], models.CloseReasonManualOverride, s.Clock.Now()); err != nil {
		return nil, err
	}

	return s.Polls.GetOne(poll.ID)
}

func (s *pollService) isOwner(sender Sender) bool {
	owner := NormalizeIdentity(s.config.OwnerID)
	if owner == "" {
		return false
	}
	return NormalizeIdentity(sender.ID) == owner || NormalizeIdentity(sender.Username) == owner
}

func (s *pollService) counts(poll *models.Poll) ([]int, error) {
	votes, err := s.Votes.GetManyByPoll(poll.ID)
	if err != nil {
		return nil, err
	}
	return ComputeTally(len(poll.Options), votes).Counts, nil
}

// finalize must run with the poll's lock held.
func (s *pollService) finalize(poll *models.Poll, winner *int, count int, reason models.CloseReason, now time.Time) error {
	text := announcementText(poll, winner, count, reason)
	err := s.Polls.SetAnnounced(repositories.AnnouncedUpdate{
		PollID:           poll.ID,
		Reason:           reason,
		ClosedAt:         now,
		AnnouncedAt:      now,
		WinningOptionIdx: winner,
		WinnerVoteCount:  count,
		Notice:           s.Outbox.Prepare(models.OutboxKindAnnouncement, text),
	})
	if err != nil {
		return err
	}

	s.timers.Cancel(poll.ID)
	s.Metrics.PollsClosed.WithLabelValues(reason.String()).Inc()
	if reason == models.CloseReasonQuorum {
		s.Metrics.QuorumCloses.Inc()
	}
	s.refreshActiveGauge()

	s.Logger.Infow("poll announced", "poll_id", poll.ID, "reason", reason, "winner", winner, "votes", count)

	s.Outbox.Wake()
	return nil
}

func (s *pollService) Status(ctx context.Context) (StatusReport, error) {
	poll, err := s.Polls.GetActive(s.config.GroupID)
	if errors.Is(err, repositories.ErrNotFound) {
		return StatusReport{}, ErrNoActivePoll
	}
	if err != nil {
		return StatusReport{}, err
	}

	votes, err := s.Votes.GetManyByPoll(poll.ID)
	if err != nil {
		return StatusReport{}, err
	}

	return StatusReport{
		Poll:           poll,
		Tally:          ComputeTally(len(poll.Options), votes),
		RequiredVoters: s.config.RequiredVoters,
		Now:            s.Clock.Now(),
	}, nil
}

func (s *pollService) scheduleFor(poll *models.Poll) {
	switch poll.Status {
	case models.PollStatusOpen:
		s.scheduleClose(poll)
	case models.PollStatusTiePending:
		deadline := s.Clock.Now()
		if poll.TieDeadlineAt != nil {
			deadline = *poll.TieDeadlineAt
		}
		s.scheduleTie(poll.ID, deadline)
	}
}

func (s *pollService) scheduleClose(poll *models.Poll) {
	pollID := poll.ID
	s.timers.Schedule(timerKey{pollID: pollID, kind: closeTimer}, poll.ClosesAt, func() {
		s.onTimer(pollID, closeTimer)
	})
}

func (s *pollService) scheduleTie(pollID int64, deadline time.Time) {
	s.timers.Schedule(timerKey{pollID: pollID, kind: tieTimer}, deadline, func() {
		s.onTimer(pollID, tieTimer)
	})
}

func (s *pollService) onTimer(pollID int64, kind timerKind) {
	var err error
	if kind == tieTimer {
		err = s.HandleTieTimeout(s.ctx, pollID)
	} else {
		err = s.ClosePoll(s.ctx, pollID, models.CloseReasonDeadline)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrInProgress):
		s.Logger.Infow("timer deferred, poll busy", "poll_id", pollID, "timer", kind.String(), "retry_in", busyTimerRetry)
		s.retryTimer(pollID, kind)
	case errors.Is(err, ErrNotOpen), errors.Is(err, ErrNoTiePending):
		s.Logger.Debugw("timer fired for settled poll", "poll_id", pollID, "timer", kind.String())
	default:
		s.Logger.Errorw("timer action failed", "poll_id", pollID, "timer", kind.String(), "error", err)
		var corrupt *models.CorruptionError
		if !errors.As(err, &corrupt) {
			s.retryTimer(pollID, kind)
		}
	}
}

// retryTimer re-arms an expired deadline. A transition that settled the poll
// in the meantime cancels it, and one that scheduled a newer deadline wins.
func (s *pollService) retryTimer(pollID int64, kind timerKind) {
	key := timerKey{pollID: pollID, kind: kind}
	s.timers.ScheduleIfAbsent(key, s.Clock.Now().Add(busyTimerRetry), func() {
		s.onTimer(pollID, kind)
	})
}

func (s *pollService) refreshActiveGauge() {
	count, err := s.Polls.CountActive(s.config.GroupID)
	if err != nil {
		s.Logger.Warnw("failed to count active polls", "error", err)
		return
	}
	s.Metrics.ActivePolls.Set(float64(count))
}

func (s *pollService) Shutdown() {
	s.cancel()
	s.timers.StopAll()
}
