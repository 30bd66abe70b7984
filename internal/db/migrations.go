package db

import (
	"fmt"

	"github.com/go-pg/migrations/v8"
)

const (
	pollsTable  = "polls"
	votesTable  = "votes"
	outboxTable = "outbox"
)

const createPollsTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id BIGSERIAL PRIMARY KEY,
    group_id TEXT NOT NULL,
    week_key TEXT NOT NULL,
    poll_message_id TEXT NOT NULL,
    question TEXT NOT NULL,
    options TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('OPEN', 'TIE_PENDING', 'ANNOUNCED')),
    created_at TIMESTAMPTZ NOT NULL,
    closes_at TIMESTAMPTZ NOT NULL,
    closed_at TIMESTAMPTZ,
    tie_deadline_at TIMESTAMPTZ,
    announced_at TIMESTAMPTZ,
    close_reason TEXT CHECK (close_reason IN ('quorum', 'deadline', 'tie-timeout', 'manual-override')),
    tie_option_indices TEXT,
    winning_option_idx INTEGER,
    winner_vote_count INTEGER
)`

const createVotesTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    poll_id BIGINT NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
    voter_jid TEXT NOT NULL,
    selected_options TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (poll_id, voter_jid)
)`

// The partial index backs the one-active-poll-per-group invariant.
const createPollIndexesSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS polls_group_week_key_idx ON polls (group_id, week_key);
CREATE UNIQUE INDEX IF NOT EXISTS polls_group_poll_message_id_idx ON polls (group_id, poll_message_id);
CREATE UNIQUE INDEX IF NOT EXISTS polls_group_active_idx ON polls (group_id) WHERE status IN ('OPEN', 'TIE_PENDING');
CREATE INDEX IF NOT EXISTS polls_group_status_idx ON polls (group_id, status, created_at);
`

const createOutboxTableSQL = `
CREATE TABLE IF NOT EXISTS outbox (
    id BIGSERIAL PRIMARY KEY,
    group_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'FAILED', 'SENT')),
    attempt_count INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL,
    next_retry_at TIMESTAMPTZ NOT NULL,
    last_error TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    sent_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_due_idx ON outbox (group_id, status, next_retry_at);
`

const (
	// Existing constraint names surface in pg errors; repositories map them
	// to sentinel errors.
	ConstraintPollWeek    = "polls_group_week_key_idx"
	ConstraintPollMessage = "polls_group_poll_message_id_idx"
	ConstraintPollActive  = "polls_group_active_idx"
)

func pollsTableSQL(name string) string {
	return fmt.Sprintf(createPollsTableSQL, name)
}

func votesTableSQL(name, pollsName string) string {
	return fmt.Sprintf(createVotesTableSQL, name, pollsName)
}

func newMigrationCollection() *migrations.Collection {
	return migrations.NewCollection(
		&migrations.Migration{
			Version: 1,
			UpTx:    true,
			Up: func(db migrations.DB) error {
				for _, statement := range []string{
					pollsTableSQL(pollsTable),
					votesTableSQL(votesTable, pollsTable),
					createPollIndexesSQL,
				} {
					if _, err := db.Exec(statement); err != nil {
						return err
					}
				}
				return nil
			},
			DownTx: true,
			Down: func(db migrations.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS votes; DROP TABLE IF EXISTS polls;`)
				return err
			},
		},
		&migrations.Migration{
			Version: 2,
			UpTx:    true,
			Up: func(db migrations.DB) error {
				_, err := db.Exec(createOutboxTableSQL)
				return err
			},
			DownTx: true,
			Down: func(db migrations.DB) error {
				_, err := db.Exec(`DROP TABLE IF EXISTS outbox`)
				return err
			},
		},
	).DisableSQLAutodiscover(true)
}
