package repositories

import (
	"time"

	"weekly_poll_bot/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type TiePendingUpdate struct {
	PollID           int64
	Reason           models.CloseReason
	ClosedAt         time.Time
	TieDeadlineAt    time.Time
	TieOptionIndices []int
	// Notice is inserted into the outbox in the same transaction.
	Notice *models.OutboxMessage
}

type AnnouncedUpdate struct {
	PollID           int64
	Reason           models.CloseReason
	ClosedAt         time.Time
	AnnouncedAt      time.Time
	WinningOptionIdx *int
	WinnerVoteCount  int
	Notice           *models.OutboxMessage
}

type pollRepository struct {
	repository
}

type PollRepository interface {
	Create(request *models.Poll) (*models.Poll, error)
	GetOne(pollID int64) (*models.Poll, error)
	GetOneByMessageID(groupID, pollMessageID string) (*models.Poll, error)
	GetOneByWeekKey(groupID, weekKey string) (*models.Poll, error)
	GetActive(groupID string) (*models.Poll, error)
	GetRecoverableIDs(groupID string) ([]int64, error)
	CountActive(groupID string) (int, error)
	SetTiePending(request TiePendingUpdate) error
	SetAnnounced(request AnnouncedUpdate) error
	ReplaceInPlace(request *models.Poll) error
}

func NewPollRepository(db *pg.DB) PollRepository {
	return &pollRepository{
		repository: repository{
			db: db,
		},
	}
}

var activeStatuses = []models.PollStatus{models.PollStatusOpen, models.PollStatusTiePending}

func (r *pollRepository) Create(request *models.Poll) (*models.Poll, error) {
	request.Status = models.PollStatusOpen
	if err := request.Encode(); err != nil {
		return nil, err
	}

	_, err := r.db.Model(request).Returning("id").Insert()
	if err != nil {
		return nil, classifyPollConstraint(err)
	}

	return r.GetOne(request.ID)
}

func (r *pollRepository) GetOne(pollID int64) (*models.Poll, error) {
	poll := &models.Poll{}

	err := r.db.Model(poll).
		Where("id = ?", pollID).
		Select()

	return poll, notFound(err)
}

func (r *pollRepository) GetOneByMessageID(groupID, pollMessageID string) (*models.Poll, error) {
	poll := &models.Poll{}

	err := r.db.Model(poll).
		Where("group_id = ?", groupID).
		Where("poll_message_id = ?", pollMessageID).
		Select()

	return poll, notFound(err)
}

func (r *pollRepository) GetOneByWeekKey(groupID, weekKey string) (*models.Poll, error) {
	poll := &models.Poll{}

	err := r.db.Model(poll).
		Where("group_id = ?", groupID).
		Where("week_key = ?", weekKey).
		Select()

	return poll, notFound(err)
}

func (r *pollRepository) GetActive(groupID string) (*models.Poll, error) {
	poll := &models.Poll{}

	err := r.db.Model(poll).
		Where("group_id = ?", groupID).
		WhereIn("status IN (?)", activeStatuses).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Select()

	return poll, notFound(err)
}

// GetRecoverableIDs selects ids only, so a row with undecodable JSON cannot
// fail the whole listing.
func (r *pollRepository) GetRecoverableIDs(groupID string) ([]int64, error) {
	ids := make([]int64, 0)

	err := r.db.Model((*models.Poll)(nil)).
		Column("id").
		Where("group_id = ?", groupID).
		WhereIn("status IN (?)", activeStatuses).
		OrderExpr("created_at ASC, id ASC").
		Select(&ids)

	return ids, err
}

func (r *pollRepository) CountActive(groupID string) (int, error) {
	return r.db.Model((*models.Poll)(nil)).
		Where("group_id = ?", groupID).
		WhereIn("status IN (?)", activeStatuses).
		Count()
}

func (r *pollRepository) SetTiePending(request TiePendingUpdate) error {
	indices, err := models.EncodeIndices(request.TieOptionIndices)
	if err != nil {
		return err
	}

	return r.db.RunInTransaction(r.db.Context(), func(tx *pg.Tx) error {
		result, err := tx.Exec(`
			UPDATE polls
			SET status = ?, close_reason = ?, closed_at = ?, tie_deadline_at = ?, tie_option_indices = ?
			WHERE id = ? AND status = ?`,
			models.PollStatusTiePending, request.Reason, request.ClosedAt, request.TieDeadlineAt, indices,
			request.PollID, models.PollStatusOpen,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrStaleTransition
		}

		return insertNotice(tx, request.Notice)
	})
}

// SetAnnounced keeps an already recorded closed_at: a tie resolved later must
// not move the original close time.
func (r *pollRepository) SetAnnounced(request AnnouncedUpdate) error {
	return r.db.RunInTransaction(r.db.Context(), func(tx *pg.Tx) error {
		result, err := tx.Exec(`
			UPDATE polls
			SET status = ?, close_reason = ?, closed_at = COALESCE(closed_at, ?), announced_at = ?,
				winning_option_idx = ?, winner_vote_count = ?, tie_deadline_at = NULL, tie_option_indices = NULL
			WHERE id = ? AND status IN (?, ?)`,
			models.PollStatusAnnounced, request.Reason, request.ClosedAt, request.AnnouncedAt,
			request.WinningOptionIdx, request.WinnerVoteCount,
			request.PollID, models.PollStatusOpen, models.PollStatusTiePending,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrStaleTransition
		}

		return insertNotice(tx, request.Notice)
	})
}

// ReplaceInPlace resets an existing row to a freshly sent poll and deletes
// every vote recorded against it. The row id is preserved.
func (r *pollRepository) ReplaceInPlace(request *models.Poll) error {
	if err := request.Encode(); err != nil {
		return err
	}

	return r.db.RunInTransaction(r.db.Context(), func(tx *pg.Tx) error {
		if _, err := tx.Exec(`DELETE FROM votes WHERE poll_id = ?`, request.ID); err != nil {
			return err
		}

		result, err := tx.Exec(`
			UPDATE polls
			SET poll_message_id = ?, question = ?, options = ?, status = ?, created_at = ?, closes_at = ?,
				closed_at = NULL, tie_deadline_at = NULL, announced_at = NULL, close_reason = NULL,
				tie_option_indices = NULL, winning_option_idx = NULL, winner_vote_count = NULL
			WHERE id = ?`,
			request.PollMessageID, request.Question, request.OptionsJSON, models.PollStatusOpen,
			request.CreatedAt, request.ClosesAt, request.ID,
		)
		if err != nil {
			return classifyPollConstraint(err)
		}
		if result.RowsAffected() == 0 {
			return ErrNotFound
		}

		request.Status = models.PollStatusOpen
		return nil
	})
}
