package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema cria as tabelas da liquidação se não existirem (AUTO_MIGRATE).
// matches é escrita pela ingestão; aqui só garantimos que existe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const q = `
	CREATE TABLE IF NOT EXISTS matches (
		round       VARCHAR(64) NOT NULL,
		sequence    INT         NOT NULL,
		status      VARCHAR(16) NOT NULL DEFAULT 'scheduled',
		result_code VARCHAR(32),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (round, sequence)
	);

	CREATE TABLE IF NOT EXISTS slips (
		id                  VARCHAR(64)    PRIMARY KEY,
		owner_id            VARCHAR(64)    NOT NULL,
		round               VARCHAR(64)    NOT NULL,
		stake_cents         BIGINT         NOT NULL CHECK (stake_cents > 0),
		total_odds          DECIMAL(14, 4) NOT NULL,
		status              VARCHAR(16)    NOT NULL DEFAULT 'pending',
		actual_return_cents BIGINT         NOT NULL DEFAULT 0,
		settled_at          TIMESTAMPTZ,
		created_at          TIMESTAMPTZ    NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_slips_pending_round ON slips(round, created_at) WHERE status = 'pending';
	CREATE INDEX IF NOT EXISTS idx_slips_owner ON slips(owner_id, status);

	CREATE TABLE IF NOT EXISTS slip_legs (
		slip_id           VARCHAR(64)    NOT NULL REFERENCES slips(id) ON DELETE CASCADE,
		match_sequence    INT            NOT NULL,
		predicted_outcome VARCHAR(32)    NOT NULL,
		odds              DECIMAL(10, 4) NOT NULL,
		actual_result     VARCHAR(32),
		is_correct        BOOLEAN,
		PRIMARY KEY (slip_id, match_sequence)
	);

	CREATE TABLE IF NOT EXISTS owner_stats (
		owner_id       VARCHAR(64)   PRIMARY KEY,
		won_count      BIGINT        NOT NULL DEFAULT 0,
		lost_count     BIGINT        NOT NULL DEFAULT 0,
		void_count     BIGINT        NOT NULL DEFAULT 0,
		staked_cents   BIGINT        NOT NULL DEFAULT 0,
		returned_cents BIGINT        NOT NULL DEFAULT 0,
		hit_rate       DECIMAL(6, 4) NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	);
	`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
