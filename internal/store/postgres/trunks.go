package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shubhamINT/api-livekit/internal/store"
)

// CreateTrunk implements [store.TrunkStore].
func (s *Store) CreateTrunk(ctx context.Context, t store.Trunk) error {
	const q = `
		INSERT INTO sip_trunks (id, name, livekit_trunk_id, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q, t.ID, t.Name, t.LiveKitTrunkID, t.PhoneNumber, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("trunk store: create %q: %w", t.ID, store.ErrConflict)
		}
		return fmt.Errorf("trunk store: create %q: %w", t.ID, err)
	}
	return nil
}

// ListTrunks implements [store.TrunkStore]. Results are ordered by creation
// time, newest first.
func (s *Store) ListTrunks(ctx context.Context) ([]store.Trunk, error) {
	const q = `
		SELECT id, name, livekit_trunk_id, phone_number, created_at
		FROM   sip_trunks
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("trunk store: list: %w", err)
	}
	trunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Trunk, error) {
		var t store.Trunk
		err := row.Scan(&t.ID, &t.Name, &t.LiveKitTrunkID, &t.PhoneNumber, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("trunk store: list: %w", err)
	}
	return trunks, nil
}
