package repositories

import (
	"errors"

	"weekly_poll_bot/internal/db"

	"github.com/go-pg/pg/v10"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPollExists       = errors.New("poll already exists for this week or message")
	ErrActivePollExists = errors.New("group already has an active poll")
	ErrStaleTransition  = errors.New("poll is not in the expected status")
)

type repository struct {
	db *pg.DB
}

func notFound(err error) error {
	if errors.Is(err, pg.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// classifyPollConstraint maps unique violations on the polls table to
// sentinel errors, keeping the driver error in the chain.
func classifyPollConstraint(err error) error {
	var pgErr pg.Error
	if !errors.As(err, &pgErr) || pgErr.Field('C') != "23505" {
		return err
	}

	switch pgErr.Field('n') {
	case db.ConstraintPollActive:
		return errors.Join(ErrActivePollExists, err)
	case db.ConstraintPollWeek, db.ConstraintPollMessage:
		return errors.Join(ErrPollExists, err)
	default:
		return err
	}
}
