package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAssistants = `
CREATE TABLE IF NOT EXISTS assistants (
    id                TEXT         PRIMARY KEY,
    name              TEXT         NOT NULL,
    description       TEXT         NOT NULL DEFAULT '',
    prompt            TEXT         NOT NULL,
    start_instruction TEXT         NOT NULL DEFAULT '',
    welcome_message   TEXT         NOT NULL DEFAULT '',
    tts               JSONB        NOT NULL DEFAULT '{}',
    end_call_url      TEXT         NOT NULL DEFAULT '',
    tool_ids          TEXT[]       NOT NULL DEFAULT '{}',
    owner_email       TEXT         NOT NULL DEFAULT '',
    active            BOOLEAN      NOT NULL DEFAULT true,
    created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assistants_owner_email
    ON assistants (owner_email);

ALTER TABLE assistants
    ADD COLUMN IF NOT EXISTS tool_ids TEXT[] NOT NULL DEFAULT '{}';
`

const ddlTools = `
CREATE TABLE IF NOT EXISTS tools (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    description TEXT         NOT NULL DEFAULT '',
    parameters  JSONB        NOT NULL DEFAULT '[]',
    execution   JSONB        NOT NULL DEFAULT '{}',
    owner_email TEXT         NOT NULL DEFAULT '',
    active      BOOLEAN      NOT NULL DEFAULT true,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tools_owner_email
    ON tools (owner_email);
`

const ddlSIPTrunks = `
CREATE TABLE IF NOT EXISTS sip_trunks (
    id               TEXT         PRIMARY KEY,
    name             TEXT         NOT NULL,
    livekit_trunk_id TEXT         NOT NULL,
    phone_number     TEXT         NOT NULL,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlCallRecords = `
CREATE TABLE IF NOT EXISTS call_records (
    id               BIGSERIAL         PRIMARY KEY,
    room_name        TEXT              NOT NULL,
    assistant_id     TEXT              NOT NULL,
    assistant_name   TEXT              NOT NULL DEFAULT '',
    to_number        TEXT              NOT NULL DEFAULT '',
    recording_path   TEXT,
    transcript       JSONB             NOT NULL DEFAULT '[]',
    started_at       TIMESTAMPTZ       NOT NULL,
    ended_at         TIMESTAMPTZ       NOT NULL,
    duration_minutes DOUBLE PRECISION  NOT NULL DEFAULT 0,
    UNIQUE (room_name, ended_at)
);

CREATE INDEX IF NOT EXISTS idx_call_records_assistant_id
    ON call_records (assistant_id);

CREATE INDEX IF NOT EXISTS idx_call_records_ended_at
    ON call_records (ended_at);
`

// Migrate creates or ensures all required tables exist. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlAssistants,
		ddlSIPTrunks,
		ddlTools,
		ddlCallRecords,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
