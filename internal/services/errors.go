package services

import "errors"

var (
	ErrActivePollExists  = errors.New("an active poll already exists")
	ErrPollExistsForWeek = errors.New("a poll already exists for this week")
	ErrNoActivePoll      = errors.New("no active poll")
	ErrInProgress        = errors.New("another operation is in progress for this poll")
	ErrNotOpen           = errors.New("poll is not open")
	ErrNoTiePending      = errors.New("no tie pending")
	ErrOptionNotTied     = errors.New("option is not part of the tie")
	ErrNotOwner          = errors.New("only the owner can do this")
	ErrPastWeek          = errors.New("week is in the past")

	// ErrInconsistentState means the poll message reached the group but the
	// row could not be written. It needs an operator; retrying would send a
	// second poll.
	ErrInconsistentState = errors.New("poll sent but not persisted")

	ErrUnsupported = errors.New("not supported by this transport")
)
