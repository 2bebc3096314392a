package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/store"
	"github.com/shubhamINT/api-livekit/internal/tool"
)

// CreateTool implements [store.ToolStore].
func (s *Store) CreateTool(ctx context.Context, d tool.Definition) error {
	params, execution, err := marshalTool(d)
	if err != nil {
		return fmt.Errorf("tool store: create %q: %w", d.ID, err)
	}

	const q = `
		INSERT INTO tools
		    (id, name, description, parameters, execution, owner_email,
		     active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, q,
		d.ID,
		d.Name,
		d.Description,
		params,
		execution,
		d.OwnerEmail,
		d.Active,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("tool store: create %q: %w", d.ID, store.ErrConflict)
		}
		return fmt.Errorf("tool store: create %q: %w", d.ID, err)
	}
	return nil
}

// GetTool implements [store.ToolStore]. Deleted tools are invisible.
func (s *Store) GetTool(ctx context.Context, id string) (tool.Definition, error) {
	const q = `
		SELECT id, name, description, parameters, execution, owner_email,
		       active, created_at, updated_at
		FROM   tools
		WHERE  id = $1 AND active = true`

	row := s.pool.QueryRow(ctx, q, id)
	d, err := scanTool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tool.Definition{}, fmt.Errorf("tool store: get %q: %w", id, tool.ErrNotFound)
		}
		return tool.Definition{}, fmt.Errorf("tool store: get %q: %w", id, err)
	}
	return d, nil
}

// ListTools implements [store.ToolStore]. Results are ordered by creation
// time, newest first.
func (s *Store) ListTools(ctx context.Context) ([]tool.Definition, error) {
	const q = `
		SELECT id, name, description, parameters, execution, owner_email,
		       active, created_at, updated_at
		FROM   tools
		WHERE  active = true
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tool store: list: %w", err)
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tool.Definition, error) {
		return scanTool(row)
	})
	if err != nil {
		return nil, fmt.Errorf("tool store: list: %w", err)
	}
	return defs, nil
}

// UpdateTool implements [store.ToolStore].
func (s *Store) UpdateTool(ctx context.Context, d tool.Definition) error {
	params, execution, err := marshalTool(d)
	if err != nil {
		return fmt.Errorf("tool store: update %q: %w", d.ID, err)
	}

	const q = `
		UPDATE tools
		SET    name = $2, description = $3, parameters = $4, execution = $5,
		       owner_email = $6, updated_at = now()
		WHERE  id = $1 AND active = true`

	tag, err := s.pool.Exec(ctx, q,
		d.ID,
		d.Name,
		d.Description,
		params,
		execution,
		d.OwnerEmail,
	)
	if err != nil {
		return fmt.Errorf("tool store: update %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tool store: update %q: %w", d.ID, tool.ErrNotFound)
	}
	return nil
}

// DeleteTool implements [store.ToolStore]. The tool is deactivated rather
// than removed, and detached from every assistant that references it, in one
// transaction.
func (s *Store) DeleteTool(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tool store: delete %q: %w", id, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE tools SET active = false, updated_at = now() WHERE id = $1 AND active = true`, id)
	if err != nil {
		return fmt.Errorf("tool store: delete %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tool store: delete %q: %w", id, tool.ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`UPDATE assistants
		 SET    tool_ids = array_remove(tool_ids, $1), updated_at = now()
		 WHERE  $1 = ANY(tool_ids)`, id)
	if err != nil {
		return fmt.Errorf("tool store: delete %q: detach from assistants: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tool store: delete %q: %w", id, err)
	}
	return nil
}

// AttachTools implements [store.ToolStore].
func (s *Store) AttachTools(ctx context.Context, assistantID string, ids []string) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, err)
	}
	defer tx.Rollback(ctx)

	var current []string
	err = tx.QueryRow(ctx,
		`SELECT tool_ids FROM assistants WHERE id = $1 FOR UPDATE`, assistantID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, assistant.ErrNotFound)
		}
		return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, err)
	}

	known, err := s.activeToolIDs(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, err)
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("tool store: attach to %q: %s: %w",
			assistantID, strings.Join(missing, ", "), tool.ErrNotFound)
	}

	existing := make(map[string]bool, len(current))
	for _, id := range current {
		existing[id] = true
	}
	merged := current
	for _, id := range ids {
		if !existing[id] {
			existing[id] = true
			merged = append(merged, id)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE assistants SET tool_ids = $2, updated_at = now() WHERE id = $1`,
		assistantID, toolIDs(merged))
	if err != nil {
		return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tool store: attach to %q: %w", assistantID, err)
	}
	return merged, nil
}

// DetachTools implements [store.ToolStore].
func (s *Store) DetachTools(ctx context.Context, assistantID string, ids []string) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tool store: detach from %q: %w", assistantID, err)
	}
	defer tx.Rollback(ctx)

	var current []string
	err = tx.QueryRow(ctx,
		`SELECT tool_ids FROM assistants WHERE id = $1 FOR UPDATE`, assistantID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tool store: detach from %q: %w", assistantID, assistant.ErrNotFound)
		}
		return nil, fmt.Errorf("tool store: detach from %q: %w", assistantID, err)
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	remaining := make([]string, 0, len(current))
	for _, id := range current {
		if !drop[id] {
			remaining = append(remaining, id)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE assistants SET tool_ids = $2, updated_at = now() WHERE id = $1`,
		assistantID, remaining)
	if err != nil {
		return nil, fmt.Errorf("tool store: detach from %q: %w", assistantID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tool store: detach from %q: %w", assistantID, err)
	}
	return remaining, nil
}

// activeToolIDs returns which of ids name an active tool.
func (s *Store) activeToolIDs(ctx context.Context, tx pgx.Tx, ids []string) (map[string]bool, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM tools WHERE id = ANY($1) AND active = true`, ids)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

func marshalTool(d tool.Definition) (params, execution []byte, err error) {
	if params, err = json.Marshal(d.Parameters); err != nil {
		return nil, nil, fmt.Errorf("marshal parameters: %w", err)
	}
	if d.Parameters == nil {
		params = []byte("[]")
	}
	if execution, err = json.Marshal(d.Execution); err != nil {
		return nil, nil, fmt.Errorf("marshal execution: %w", err)
	}
	return params, execution, nil
}

// scanTool scans one tools row, decoding the parameters and execution JSONB
// columns.
func scanTool(row pgx.Row) (tool.Definition, error) {
	var (
		d         tool.Definition
		params    []byte
		execution []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&params,
		&execution,
		&d.OwnerEmail,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return tool.Definition{}, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &d.Parameters); err != nil {
			return tool.Definition{}, fmt.Errorf("decode parameters: %w", err)
		}
	}
	if len(execution) > 0 {
		if err := json.Unmarshal(execution, &d.Execution); err != nil {
			return tool.Definition{}, fmt.Errorf("decode execution: %w", err)
		}
	}
	return d, nil
}
