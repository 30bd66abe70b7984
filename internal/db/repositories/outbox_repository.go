package repositories

import (
	"time"

	"weekly_poll_bot/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type outboxRepository struct {
	repository
}

type OutboxRepository interface {
	Create(request *models.OutboxMessage) (*models.OutboxMessage, error)
	GetOne(messageID int64) (*models.OutboxMessage, error)
	GetDueIDs(groupID string, now time.Time, limit int) ([]int64, error)
	CountRetryable(groupID string) (int, error)
	NextRetryAt(groupID string) (*time.Time, error)
	MarkSent(messageID int64, sentAt time.Time) error
	MarkFailed(messageID int64, lastError string, nextRetryAt *time.Time) error
	MarkCorrupt(messageID int64, lastError string) error
}

func NewOutboxRepository(db *pg.DB) OutboxRepository {
	return &outboxRepository{
		repository: repository{
			db: db,
		},
	}
}

var retryableStatuses = []models.OutboxStatus{models.OutboxStatusPending, models.OutboxStatusFailed}

func (r *outboxRepository) Create(request *models.OutboxMessage) (*models.OutboxMessage, error) {
	if err := request.Encode(); err != nil {
		return nil, err
	}

	if _, err := r.db.Model(request).Returning("id").Insert(); err != nil {
		return nil, err
	}

	return r.GetOne(request.ID)
}

func (r *outboxRepository) GetOne(messageID int64) (*models.OutboxMessage, error) {
	message := &models.OutboxMessage{}

	err := r.db.Model(message).
		Where("id = ?", messageID).
		Select()

	return message, notFound(err)
}

// insertNotice writes an outbox row inside a poll transition.
func insertNotice(tx *pg.Tx, notice *models.OutboxMessage) error {
	if notice == nil {
		return nil
	}
	if err := notice.Encode(); err != nil {
		return err
	}

	_, err := tx.Model(notice).Returning("id").Insert()
	return err
}

// GetDueIDs selects ids only; callers load each row with GetOne so one
// undecodable payload does not block the rest of the queue.
func (r *outboxRepository) GetDueIDs(groupID string, now time.Time, limit int) ([]int64, error) {
	ids := make([]int64, 0)

	err := r.db.Model((*models.OutboxMessage)(nil)).
		Column("id").
		Where("group_id = ?", groupID).
		WhereIn("status IN (?)", retryableStatuses).
		Where("attempt_count < max_attempts").
		Where("next_retry_at <= ?", now).
		OrderExpr("next_retry_at ASC, id ASC").
		Limit(limit).
		Select(&ids)

	return ids, err
}

func (r *outboxRepository) CountRetryable(groupID string) (int, error) {
	return r.db.Model((*models.OutboxMessage)(nil)).
		Where("group_id = ?", groupID).
		WhereIn("status IN (?)", retryableStatuses).
		Where("attempt_count < max_attempts").
		Count()
}

func (r *outboxRepository) NextRetryAt(groupID string) (*time.Time, error) {
	var next pg.NullTime

	_, err := r.db.QueryOne(pg.Scan(&next), `
		SELECT MIN(next_retry_at) FROM outbox
		WHERE group_id = ? AND status IN (?) AND attempt_count < max_attempts`,
		groupID, pg.In(retryableStatuses),
	)
	if err != nil {
		return nil, err
	}
	if next.Time.IsZero() {
		return nil, nil
	}

	return &next.Time, nil
}

func (r *outboxRepository) MarkSent(messageID int64, sentAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE outbox SET status = ?, sent_at = ?, attempt_count = attempt_count + 1, last_error = NULL
		WHERE id = ?`,
		models.OutboxStatusSent, sentAt, messageID,
	)
	return err
}

// MarkFailed records one more failed attempt. A nil nextRetryAt leaves the
// schedule untouched; the message is then terminal once attempts run out.
func (r *outboxRepository) MarkFailed(messageID int64, lastError string, nextRetryAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE outbox SET status = ?, attempt_count = attempt_count + 1, last_error = ?,
			next_retry_at = COALESCE(?, next_retry_at)
		WHERE id = ?`,
		models.OutboxStatusFailed, lastError, nextRetryAt, messageID,
	)
	return err
}

// MarkCorrupt makes a message terminal without touching its payload.
func (r *outboxRepository) MarkCorrupt(messageID int64, lastError string) error {
	_, err := r.db.Exec(`
		UPDATE outbox SET status = ?, attempt_count = max_attempts, last_error = ?
		WHERE id = ?`,
		models.OutboxStatusFailed, lastError, messageID,
	)
	return err
}
