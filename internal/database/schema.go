package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// migrations are applied in order; every statement is idempotent.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		phone_number  TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL DEFAULT 'member'
		              CHECK (role IN ('super_admin', 'admin', 'leader', 'member', 'usher')),
		district      TEXT NOT NULL DEFAULT '',
		group_number  TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'active'
		              CHECK (status IN ('active', 'inactive', 'suspended')),
		english_name  TEXT NOT NULL DEFAULT '',
		chinese_name  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token       TEXT NOT NULL UNIQUE,
		device_id   TEXT NOT NULL DEFAULT '',
		expires_at  TIMESTAMPTZ NOT NULL,
		revoked     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id) WHERE NOT revoked`,

	`CREATE TABLE IF NOT EXISTS verification_codes (
		id            BIGSERIAL PRIMARY KEY,
		phone_number  TEXT NOT NULL,
		code_hash     TEXT NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		attempts      INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS verification_codes_phone_idx ON verification_codes (phone_number, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS attendance (
		id                 BIGSERIAL PRIMARY KEY,
		date               DATE NOT NULL,
		meeting_type       TEXT NOT NULL CHECK (meeting_type IN ('table', 'homeMeeting', 'prayer')),
		scope              TEXT NOT NULL CHECK (scope IN ('full_congregation', 'district', 'small_group')),
		scope_value        TEXT NOT NULL DEFAULT '',
		adult_count        INTEGER NOT NULL CHECK (adult_count >= 0),
		youth_child_count  INTEGER NOT NULL CHECK (youth_child_count >= 0),
		district           TEXT NOT NULL DEFAULT '',
		notes              TEXT NOT NULL DEFAULT '',
		created_by         BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS attendance_slot_key
		ON attendance (date, meeting_type, scope, scope_value)
		WHERE scope <> 'full_congregation'`,

	`CREATE TABLE IF NOT EXISTS travel_schedules (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_date   DATE NOT NULL,
		end_date     DATE NOT NULL,
		destination  TEXT NOT NULL DEFAULT '',
		notes        TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (start_date <= end_date)
	)`,
	`CREATE INDEX IF NOT EXISTS travel_schedules_user_idx ON travel_schedules (user_id, start_date)`,

	`CREATE TABLE IF NOT EXISTS gym_reservations (
		id              BIGSERIAL PRIMARY KEY,
		user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date            DATE NOT NULL,
		start_minute    INTEGER NOT NULL,
		end_minute      INTEGER NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK (status IN ('pending', 'checked_in', 'checked_out', 'cancelled')),
		checked_in_at   TIMESTAMPTZ,
		checked_out_at  TIMESTAMPTZ,
		cancelled_at    TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (start_minute < end_minute)
	)`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'gym_reservations_no_overlap') THEN
			ALTER TABLE gym_reservations ADD CONSTRAINT gym_reservations_no_overlap
				EXCLUDE USING gist (date WITH =, int4range(start_minute, end_minute) WITH &&)
				WHERE (status <> 'cancelled');
		END IF;
	END $$`,
	`CREATE UNIQUE INDEX IF NOT EXISTS gym_reservations_one_per_day
		ON gym_reservations (user_id, date)
		WHERE status <> 'cancelled'`,

	`CREATE TABLE IF NOT EXISTS crash_logs (
		id             UUID PRIMARY KEY,
		user_id        BIGINT REFERENCES users(id) ON DELETE SET NULL,
		device_info    TEXT NOT NULL DEFAULT '',
		app_version    TEXT NOT NULL DEFAULT '',
		error_message  TEXT NOT NULL,
		stack_trace    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Printf("Database schema up to date (%d statements)", len(migrations))
	return nil
}
