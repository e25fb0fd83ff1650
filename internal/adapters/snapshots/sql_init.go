package snapshots

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the snapshot table if it does not exist. Called from
// the composition root and the dbtool; idempotent.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS policy_snapshots (
		policy_id        BIGINT PRIMARY KEY,
		insured          TEXT NOT NULL,
		container_id     TEXT NOT NULL,
		expected_arrival BIGINT NOT NULL,
		actual_arrival   BIGINT NOT NULL,
		claimed_days     BIGINT NOT NULL,
		status_code      SMALLINT NOT NULL,
		claimable_days   BIGINT NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_policy_snapshots_insured
		ON policy_snapshots (insured);
	`
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("init schema: create policy_snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit: %w", err)
	}
	return nil
}
