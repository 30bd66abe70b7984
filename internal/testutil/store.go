// Package testutil provides in-memory repositories and a scripted chat
// transport for service tests. The repositories enforce the same uniqueness
// and status guards as the Postgres schema.
package testutil

import (
	"sort"
	"sync"
	"time"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/db/repositories"
)

type Store struct {
	mu      sync.Mutex
	polls   map[int64]*models.Poll
	votes   map[int64]map[string]*models.Vote
	outbox  map[int64]*models.OutboxMessage
	nextID  int64
	nextMsg int64

	// FailOutboxMarks makes MarkSent, MarkFailed and MarkCorrupt return this
	// error.
	FailOutboxMarks error

	readHook       func()
	transitionHook func() error
}

func NewStore() *Store {
	return &Store{
		polls:  make(map[int64]*models.Poll),
		votes:  make(map[int64]map[string]*models.Vote),
		outbox: make(map[int64]*models.OutboxMessage),
	}
}

func (s *Store) Polls() repositories.PollRepository {
	return &pollStore{s}
}

func (s *Store) Votes() repositories.VoteRepository {
	return &voteStore{s}
}

func (s *Store) Outbox() repositories.OutboxRepository {
	return &outboxStore{s}
}

// Rows are round-tripped through their JSON encoding so tests observe the
// same decoding a database read performs, including its errors.
func copyPoll(p *models.Poll) (*models.Poll, error) {
	c := *p
	if err := c.Decode(); err != nil {
		return nil, err
	}
	return &c, nil
}

func copyVote(v *models.Vote) (*models.Vote, error) {
	c := *v
	if err := c.Decode(); err != nil {
		return nil, err
	}
	return &c, nil
}

func copyOutbox(m *models.OutboxMessage) (*models.OutboxMessage, error) {
	c := *m
	if err := c.Decode(); err != nil {
		return nil, err
	}
	return &c, nil
}

// OnNextPollRead runs fn once, at the start of the next poll GetOne. The
// store's lock is not held while fn runs.
func (s *Store) OnNextPollRead(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readHook = fn
}

// OnNextTransition runs fn once, before the next SetTiePending or
// SetAnnounced looks at the row. A non-nil error fails that transition.
func (s *Store) OnNextTransition(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionHook = fn
}

func (s *Store) runReadHook() {
	s.mu.Lock()
	hook := s.readHook
	s.readHook = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (s *Store) runTransitionHook() error {
	s.mu.Lock()
	hook := s.transitionHook
	s.transitionHook = nil
	s.mu.Unlock()

	if hook == nil {
		return nil
	}
	return hook()
}

type pollStore struct{ *Store }

func (s *pollStore) Create(request *models.Poll) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request.Status = models.PollStatusOpen
	if err := request.Encode(); err != nil {
		return nil, err
	}

	for _, existing := range s.polls {
		if existing.GroupID != request.GroupID {
			continue
		}
		if existing.WeekKey == request.WeekKey || existing.PollMessageID == request.PollMessageID {
			return nil, repositories.ErrPollExists
		}
		if existing.Status.IsActive() {
			return nil, repositories.ErrActivePollExists
		}
	}

	s.nextID++
	row := *request
	row.ID = s.nextID
	s.polls[row.ID] = &row
	request.ID = row.ID

	return copyPoll(&row)
}

// Insert stores a poll row as is, bypassing every guard. Recovery tests use
// it to seed state a previous process left behind.
func (s *Store) Insert(poll *models.Poll) *models.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = poll.Encode()
	s.nextID++
	row := *poll
	row.ID = s.nextID
	s.polls[row.ID] = &row

	seeded, _ := copyPoll(&row)
	return seeded
}

func (s *pollStore) GetOne(pollID int64) (*models.Poll, error) {
	s.runReadHook()

	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[pollID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyPoll(poll)
}

func (s *pollStore) find(match func(*models.Poll) bool) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, poll := range s.polls {
		if match(poll) {
			return copyPoll(poll)
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *pollStore) GetOneByMessageID(groupID, pollMessageID string) (*models.Poll, error) {
	return s.find(func(p *models.Poll) bool {
		return p.GroupID == groupID && p.PollMessageID == pollMessageID
	})
}

func (s *pollStore) GetOneByWeekKey(groupID, weekKey string) (*models.Poll, error) {
	return s.find(func(p *models.Poll) bool {
		return p.GroupID == groupID && p.WeekKey == weekKey
	})
}

func (s *pollStore) active(groupID string) []*models.Poll {
	result := make([]*models.Poll, 0)
	for _, poll := range s.polls {
		if poll.GroupID == groupID && poll.Status.IsActive() {
			result = append(result, poll)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *pollStore) GetActive(groupID string) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.active(groupID)
	if len(active) == 0 {
		return nil, repositories.ErrNotFound
	}
	return copyPoll(active[len(active)-1])
}

func (s *pollStore) GetRecoverableIDs(groupID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.active(groupID)
	result := make([]int64, 0, len(active))
	for _, poll := range active {
		result = append(result, poll.ID)
	}
	return result, nil
}

func (s *pollStore) CountActive(groupID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active(groupID)), nil
}

func (s *pollStore) SetTiePending(request repositories.TiePendingUpdate) error {
	if err := s.runTransitionHook(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[request.PollID]
	if !ok || poll.Status != models.PollStatusOpen {
		return repositories.ErrStaleTransition
	}

	indices, err := models.EncodeIndices(request.TieOptionIndices)
	if err != nil {
		return err
	}
	if err := s.insertNotice(request.Notice); err != nil {
		return err
	}

	reason := request.Reason
	closedAt := request.ClosedAt
	tieDeadline := request.TieDeadlineAt

	poll.Status = models.PollStatusTiePending
	poll.CloseReason = &reason
	poll.ClosedAt = &closedAt
	poll.TieDeadlineAt = &tieDeadline
	poll.TieOptionIndicesJSON = &indices
	return nil
}

func (s *pollStore) SetAnnounced(request repositories.AnnouncedUpdate) error {
	if err := s.runTransitionHook(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[request.PollID]
	if !ok || !poll.Status.IsActive() {
		return repositories.ErrStaleTransition
	}
	if err := s.insertNotice(request.Notice); err != nil {
		return err
	}

	reason := request.Reason
	announcedAt := request.AnnouncedAt
	count := request.WinnerVoteCount

	poll.Status = models.PollStatusAnnounced
	poll.CloseReason = &reason
	if poll.ClosedAt == nil {
		closedAt := request.ClosedAt
		poll.ClosedAt = &closedAt
	}
	poll.AnnouncedAt = &announcedAt
	poll.WinnerVoteCount = &count
	poll.WinningOptionIdx = nil
	if request.WinningOptionIdx != nil {
		winner := *request.WinningOptionIdx
		poll.WinningOptionIdx = &winner
	}
	poll.TieDeadlineAt = nil
	poll.TieOptionIndicesJSON = nil
	return nil
}

func (s *pollStore) ReplaceInPlace(request *models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[request.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := request.Encode(); err != nil {
		return err
	}
	for _, other := range s.polls {
		if other.ID != poll.ID && other.GroupID == poll.GroupID && other.PollMessageID == request.PollMessageID {
			return repositories.ErrPollExists
		}
	}

	delete(s.votes, poll.ID)

	poll.PollMessageID = request.PollMessageID
	poll.Question = request.Question
	poll.OptionsJSON = request.OptionsJSON
	poll.Status = models.PollStatusOpen
	poll.CreatedAt = request.CreatedAt
	poll.ClosesAt = request.ClosesAt
	poll.ClosedAt = nil
	poll.TieDeadlineAt = nil
	poll.AnnouncedAt = nil
	poll.CloseReason = nil
	poll.TieOptionIndicesJSON = nil
	poll.WinningOptionIdx = nil
	poll.WinnerVoteCount = nil

	request.Status = models.PollStatusOpen
	return nil
}

type voteStore struct{ *Store }

func (s *voteStore) Upsert(request *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[request.PollID]; !ok {
		return repositories.ErrNotFound
	}
	if err := request.Encode(); err != nil {
		return err
	}

	byVoter, ok := s.votes[request.PollID]
	if !ok {
		byVoter = make(map[string]*models.Vote)
		s.votes[request.PollID] = byVoter
	}
	row := *request
	byVoter[request.VoterJID] = &row
	return nil
}

func (s *voteStore) GetManyByPoll(pollID int64) ([]*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*models.Vote, 0, len(s.votes[pollID]))
	for _, vote := range s.votes[pollID] {
		decoded, err := copyVote(vote)
		if err != nil {
			return nil, err
		}
		result = append(result, decoded)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VoterJID < result[j].VoterJID
	})
	return result, nil
}

type outboxStore struct{ *Store }

func (s *outboxStore) Create(request *models.OutboxMessage) (*models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertNotice(request); err != nil {
		return nil, err
	}
	return copyOutbox(s.outbox[request.ID])
}

// insertNotice must run with s.mu held.
func (s *Store) insertNotice(notice *models.OutboxMessage) error {
	if notice == nil {
		return nil
	}
	if err := notice.Encode(); err != nil {
		return err
	}

	s.nextMsg++
	row := *notice
	row.ID = s.nextMsg
	s.outbox[row.ID] = &row
	notice.ID = row.ID
	return nil
}

func (s *outboxStore) GetOne(messageID int64) (*models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.outbox[messageID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOutbox(message)
}

func (s *outboxStore) retryable(groupID string) []*models.OutboxMessage {
	result := make([]*models.OutboxMessage, 0)
	for _, message := range s.outbox {
		if message.GroupID != groupID || message.Status == models.OutboxStatusSent {
			continue
		}
		if message.AttemptCount >= message.MaxAttempts {
			continue
		}
		result = append(result, message)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NextRetryAt.Equal(result[j].NextRetryAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].NextRetryAt.Before(result[j].NextRetryAt)
	})
	return result
}

func (s *outboxStore) GetDueIDs(groupID string, now time.Time, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]int64, 0)
	for _, message := range s.retryable(groupID) {
		if len(result) == limit {
			break
		}
		if message.IsDeliverable(now) {
			result = append(result, message.ID)
		}
	}
	return result, nil
}

func (s *outboxStore) CountRetryable(groupID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retryable(groupID)), nil
}

func (s *outboxStore) NextRetryAt(groupID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	retryable := s.retryable(groupID)
	if len(retryable) == 0 {
		return nil, nil
	}
	next := retryable[0].NextRetryAt
	return &next, nil
}

func (s *outboxStore) MarkSent(messageID int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOutboxMarks != nil {
		return s.FailOutboxMarks
	}
	message, ok := s.outbox[messageID]
	if !ok {
		return repositories.ErrNotFound
	}
	message.Status = models.OutboxStatusSent
	message.SentAt = &sentAt
	message.AttemptCount++
	message.LastError = nil
	return nil
}

func (s *outboxStore) MarkFailed(messageID int64, lastError string, nextRetryAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOutboxMarks != nil {
		return s.FailOutboxMarks
	}
	message, ok := s.outbox[messageID]
	if !ok {
		return repositories.ErrNotFound
	}
	message.Status = models.OutboxStatusFailed
	message.AttemptCount++
	message.LastError = &lastError
	if nextRetryAt != nil {
		message.NextRetryAt = *nextRetryAt
	}
	return nil
}

func (s *outboxStore) MarkCorrupt(messageID int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOutboxMarks != nil {
		return s.FailOutboxMarks
	}
	message, ok := s.outbox[messageID]
	if !ok {
		return repositories.ErrNotFound
	}
	message.Status = models.OutboxStatusFailed
	message.AttemptCount = message.MaxAttempts
	message.LastError = &lastError
	return nil
}

// OutboxMessages returns every outbox row ordered by id. Rows that no longer
// decode are returned with an empty payload.
func (s *Store) OutboxMessages() []*models.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*models.OutboxMessage, 0, len(s.outbox))
	for _, message := range s.outbox {
		c := *message
		_ = c.Decode()
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// VoteRows returns the number of stored votes for a poll.
func (s *Store) VoteRows(pollID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes[pollID])
}

// SetFailOutboxMarks is safe to call while a drain runs.
func (s *Store) SetFailOutboxMarks(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailOutboxMarks = err
}

// CorruptOutboxPayload overwrites the stored payload JSON of a message.
func (s *Store) CorruptOutboxPayload(messageID int64, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message, ok := s.outbox[messageID]; ok {
		message.PayloadJSON = raw
	}
}

// CorruptPollOptions overwrites the stored options JSON of a poll.
func (s *Store) CorruptPollOptions(pollID int64, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if poll, ok := s.polls[pollID]; ok {
		poll.OptionsJSON = raw
	}
}
