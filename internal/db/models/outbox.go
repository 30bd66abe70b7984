package models

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type (
	OutboxStatus string
	OutboxKind   string
)

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusFailed  OutboxStatus = "FAILED"
	OutboxStatusSent    OutboxStatus = "SENT"

	OutboxKindAnnouncement OutboxKind = "announcement"
	OutboxKindTieNotice    OutboxKind = "tie_notice"
)

func (s OutboxStatus) String() string {
	return string(s)
}

type OutboxPayload struct {
	Kind OutboxKind `json:"kind"`
	Text string     `json:"text"`
}

type OutboxMessage struct {
	tableName struct{} `pg:"outbox"`

	ID           int64        `json:"id" pg:",pk"`
	GroupID      string       `json:"group_id" pg:",notnull"`
	PayloadJSON  string       `json:"-" pg:"payload,notnull"`
	Status       OutboxStatus `json:"status" pg:",notnull"`
	AttemptCount int          `json:"attempt_count" pg:",notnull,use_zero"`
	MaxAttempts  int          `json:"max_attempts" pg:",notnull,use_zero"`
	NextRetryAt  time.Time    `json:"next_retry_at" pg:",notnull"`
	LastError    *string      `json:"last_error"`
	CreatedAt    time.Time    `json:"created_at" pg:",notnull"`
	SentAt       *time.Time   `json:"sent_at"`

	Payload OutboxPayload `json:"payload" pg:"-"`
}

func (m *OutboxMessage) Encode() error {
	encoded, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	m.PayloadJSON = string(encoded)
	return nil
}

func (m *OutboxMessage) Decode() error {
	var payload OutboxPayload
	err := json.Unmarshal([]byte(m.PayloadJSON), &payload)
	if err == nil && payload.Kind == "" {
		err = errors.New("payload has no kind")
	}
	if err != nil {
		return &CorruptionError{Table: "outbox", ID: strconv.FormatInt(m.ID, 10), Field: "payload", Err: err}
	}
	m.Payload = payload
	return nil
}

func (m *OutboxMessage) AfterScan(context.Context) error {
	return m.Decode()
}

// IsDeliverable reports whether the drain loop may attempt the message now.
func (m *OutboxMessage) IsDeliverable(now time.Time) bool {
	retryable := m.Status == OutboxStatusPending || m.Status == OutboxStatusFailed
	return retryable && m.AttemptCount < m.MaxAttempts && !m.NextRetryAt.After(now)
}
