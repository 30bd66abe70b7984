package repositories

import (
	"weekly_poll_bot/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type voteRepository struct {
	repository
}

type VoteRepository interface {
	Upsert(request *models.Vote) error
	GetManyByPoll(pollID int64) ([]*models.Vote, error)
}

func NewVoteRepository(db *pg.DB) VoteRepository {
	return &voteRepository{
		repository: repository{
			db: db,
		},
	}
}

// Upsert replaces any earlier selection of the same voter on the same poll.
func (r *voteRepository) Upsert(request *models.Vote) error {
	if err := request.Encode(); err != nil {
		return err
	}

	_, err := r.db.Model(request).
		OnConflict("(poll_id, voter_jid) DO UPDATE").
		Set("selected_options = EXCLUDED.selected_options").
		Set("updated_at = EXCLUDED.updated_at").
		Insert()

	return err
}

func (r *voteRepository) GetManyByPoll(pollID int64) ([]*models.Vote, error) {
	votes := make([]*models.Vote, 0)

	err := r.db.Model(&votes).
		Where("poll_id = ?", pollID).
		OrderExpr("voter_jid ASC").
		Select()

	return votes, err
}
