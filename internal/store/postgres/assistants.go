package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/store"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// CreateAssistant implements [store.AssistantStore].
func (s *Store) CreateAssistant(ctx context.Context, cfg assistant.Config) error {
	tts, err := json.Marshal(cfg.TTS)
	if err != nil {
		return fmt.Errorf("assistant store: marshal tts: %w", err)
	}

	const q = `
		INSERT INTO assistants
		    (id, name, description, prompt, start_instruction, welcome_message,
		     tts, end_call_url, tool_ids, owner_email, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, q,
		cfg.ID,
		cfg.Name,
		cfg.Description,
		cfg.Prompt,
		cfg.StartInstruction,
		cfg.WelcomeMessage,
		tts,
		cfg.EndCallURL,
		toolIDs(cfg.ToolIDs),
		cfg.OwnerEmail,
		cfg.Active,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("assistant store: create %q: %w", cfg.ID, store.ErrConflict)
		}
		return fmt.Errorf("assistant store: create %q: %w", cfg.ID, err)
	}
	return nil
}

// GetAssistant implements both [store.AssistantStore] and [assistant.Store].
func (s *Store) GetAssistant(ctx context.Context, id string) (assistant.Config, error) {
	const q = `
		SELECT id, name, description, prompt, start_instruction, welcome_message,
		       tts, end_call_url, tool_ids, owner_email, active, created_at, updated_at
		FROM   assistants
		WHERE  id = $1`

	row := s.pool.QueryRow(ctx, q, id)
	cfg, err := scanAssistant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return assistant.Config{}, fmt.Errorf("assistant store: get %q: %w", id, assistant.ErrNotFound)
		}
		return assistant.Config{}, fmt.Errorf("assistant store: get %q: %w", id, err)
	}
	return cfg, nil
}

// ListAssistants implements [store.AssistantStore]. Results are ordered by
// creation time, newest first.
func (s *Store) ListAssistants(ctx context.Context) ([]assistant.Config, error) {
	const q = `
		SELECT id, name, description, prompt, start_instruction, welcome_message,
		       tts, end_call_url, tool_ids, owner_email, active, created_at, updated_at
		FROM   assistants
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("assistant store: list: %w", err)
	}
	configs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (assistant.Config, error) {
		return scanAssistant(row)
	})
	if err != nil {
		return nil, fmt.Errorf("assistant store: list: %w", err)
	}
	return configs, nil
}

// UpdateAssistant implements [store.AssistantStore].
func (s *Store) UpdateAssistant(ctx context.Context, cfg assistant.Config) error {
	tts, err := json.Marshal(cfg.TTS)
	if err != nil {
		return fmt.Errorf("assistant store: marshal tts: %w", err)
	}

	const q = `
		UPDATE assistants
		SET    name = $2, description = $3, prompt = $4, start_instruction = $5,
		       welcome_message = $6, tts = $7, end_call_url = $8, tool_ids = $9,
		       owner_email = $10, active = $11, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q,
		cfg.ID,
		cfg.Name,
		cfg.Description,
		cfg.Prompt,
		cfg.StartInstruction,
		cfg.WelcomeMessage,
		tts,
		cfg.EndCallURL,
		toolIDs(cfg.ToolIDs),
		cfg.OwnerEmail,
		cfg.Active,
	)
	if err != nil {
		return fmt.Errorf("assistant store: update %q: %w", cfg.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assistant store: update %q: %w", cfg.ID, assistant.ErrNotFound)
	}
	return nil
}

// DeleteAssistant implements [store.AssistantStore].
func (s *Store) DeleteAssistant(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assistants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("assistant store: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assistant store: delete %q: %w", id, assistant.ErrNotFound)
	}
	return nil
}

// toolIDs normalises a nil slice to an empty array so the TEXT[] column
// never stores NULL.
func toolIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// scanAssistant scans one assistants row, decoding the tts JSONB column.
func scanAssistant(row pgx.Row) (assistant.Config, error) {
	var (
		cfg assistant.Config
		tts []byte
	)
	if err := row.Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.Description,
		&cfg.Prompt,
		&cfg.StartInstruction,
		&cfg.WelcomeMessage,
		&tts,
		&cfg.EndCallURL,
		&cfg.ToolIDs,
		&cfg.OwnerEmail,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return assistant.Config{}, err
	}
	if len(tts) > 0 {
		if err := json.Unmarshal(tts, &cfg.TTS); err != nil {
			return assistant.Config{}, fmt.Errorf("decode tts: %w", err)
		}
	}
	return cfg, nil
}
