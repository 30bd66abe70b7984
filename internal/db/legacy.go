package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pg/pg/v10"
	"go.uber.org/zap"
)

var indexColumnsPattern = regexp.MustCompile(`\(([^)]*)\)\s*$`)

// isLegacyUniqueIndex reports whether a pg_indexes definition is a unique
// index over week_key or poll_message_id alone, as created by the
// single-group schema.
func isLegacyUniqueIndex(definition string) bool {
	if !strings.Contains(strings.ToUpper(definition), "CREATE UNIQUE INDEX") {
		return false
	}

	match := indexColumnsPattern.FindStringSubmatch(definition)
	if match == nil {
		return false
	}

	columns := strings.TrimSpace(match[1])
	return columns == "week_key" || columns == "poll_message_id"
}

func hasLegacySchema(ctx context.Context, db pg.DBI) (bool, error) {
	var definitions []string
	_, err := db.QueryContext(ctx, &definitions, `
		SELECT indexdef FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = ?`, pollsTable)
	if err != nil {
		return false, fmt.Errorf("inspect poll indexes: %w", err)
	}

	for _, definition := range definitions {
		if isLegacyUniqueIndex(definition) {
			return true, nil
		}
	}
	return false, nil
}

// upgradeLegacySchema swaps single-group polls/votes tables for group-scoped
// ones. The swap runs in one transaction: replacement tables reference each
// other, so the old foreign key never constrains the copy, and any failure
// rolls back to the untouched legacy tables.
func upgradeLegacySchema(ctx context.Context, db *pg.DB, groupID string, logger *zap.SugaredLogger) error {
	legacy, err := hasLegacySchema(ctx, db)
	if err != nil {
		return err
	}
	if !legacy {
		return nil
	}

	logger.Infow("legacy single-group schema detected, upgrading", "group_id", groupID)

	err = db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		statements := []struct {
			query  string
			params []interface{}
		}{
			{query: pollsTableSQL("polls_next")},
			{query: `
				INSERT INTO polls_next (id, group_id, week_key, poll_message_id, question, options, status,
					created_at, closes_at, closed_at, tie_deadline_at, announced_at, close_reason,
					tie_option_indices, winning_option_idx, winner_vote_count)
				SELECT id, ?, week_key, poll_message_id, question, options, status,
					created_at, closes_at, closed_at, tie_deadline_at, announced_at, close_reason,
					tie_option_indices, winning_option_idx, winner_vote_count
				FROM polls`, params: []interface{}{groupID}},
			{query: votesTableSQL("votes_next", "polls_next")},
			{query: `
				INSERT INTO votes_next (poll_id, voter_jid, selected_options, updated_at)
				SELECT poll_id, voter_jid, selected_options, updated_at FROM votes`},
			{query: `DROP TABLE votes`},
			{query: `DROP TABLE polls`},
			{query: `ALTER TABLE polls_next RENAME TO polls`},
			{query: `ALTER TABLE votes_next RENAME TO votes`},
			{query: `ALTER SEQUENCE polls_next_id_seq RENAME TO polls_id_seq`},
			{query: `SELECT setval('polls_id_seq', COALESCE((SELECT MAX(id) FROM polls), 0) + 1, false)`},
			{query: createPollIndexesSQL},
			{query: `ALTER TABLE IF EXISTS outbox ADD COLUMN IF NOT EXISTS group_id TEXT NOT NULL DEFAULT ''`},
		}

		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement.query, statement.params...); err != nil {
				return fmt.Errorf("legacy upgrade: %w", err)
			}
		}

		var outboxExists bool
		if _, err := tx.QueryOneContext(ctx, pg.Scan(&outboxExists), `SELECT to_regclass('outbox') IS NOT NULL`); err != nil {
			return fmt.Errorf("legacy upgrade: %w", err)
		}
		if outboxExists {
			if _, err := tx.ExecContext(ctx, `UPDATE outbox SET group_id = ? WHERE group_id = ''`, groupID); err != nil {
				return fmt.Errorf("legacy upgrade: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Infow("legacy schema upgraded", "group_id", groupID)
	return nil
}
