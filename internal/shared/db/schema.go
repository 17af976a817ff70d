package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema do ledger do pool; idempotente (CREATE ... IF NOT EXISTS)
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bettors (
		name       TEXT PRIMARY KEY,
		balance    NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id               BIGSERIAL PRIMARY KEY,
		side1_name       TEXT NOT NULL,
		side2_name       TEXT NOT NULL,
		side1_total      NUMERIC(14,2) NOT NULL DEFAULT 0,
		side2_total      NUMERIC(14,2) NOT NULL DEFAULT 0,
		winning_side     SMALLINT CHECK (winning_side IN (1, 2)),
		state            TEXT NOT NULL DEFAULT 'OPEN' CHECK (state IN ('OPEN', 'RESOLVED')),
		house_commission NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_state ON matches (state)`,
	`CREATE TABLE IF NOT EXISTS wagers (
		id          BIGSERIAL PRIMARY KEY,
		match_id    BIGINT NOT NULL REFERENCES matches (id),
		bettor_name TEXT NOT NULL REFERENCES bettors (name),
		amount      NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		side        SMALLINT NOT NULL CHECK (side IN (1, 2)),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wagers_match ON wagers (match_id)`,
	`CREATE TABLE IF NOT EXISTS settlement_records (
		id           BIGSERIAL PRIMARY KEY,
		match_id     BIGINT NOT NULL,
		side1_name   TEXT NOT NULL,
		side2_name   TEXT NOT NULL,
		bettor_name  TEXT NOT NULL,
		staked       NUMERIC(14,2) NOT NULL,
		paid_out     NUMERIC(14,2) NOT NULL DEFAULT 0,
		chosen_side  SMALLINT NOT NULL,
		winning_side SMALLINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_records_match ON settlement_records (match_id)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_records_bettor ON settlement_records (bettor_name)`,
}

// Migrate cria as tabelas do ledger caso ainda não existam
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
