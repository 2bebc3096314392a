package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shubhamINT/api-livekit/internal/callrecord"
	"github.com/shubhamINT/api-livekit/internal/store"
	"github.com/shubhamINT/api-livekit/internal/transcript"
)

// SaveCall implements [store.CallStore]. The ON CONFLICT clause makes retried
// finalization of the same call a no-op instead of a duplicate row.
func (s *Store) SaveCall(ctx context.Context, rec callrecord.Record) error {
	tr, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("call store: marshal transcript: %w", err)
	}
	if rec.Transcript == nil {
		tr = []byte("[]")
	}

	var recordingPath *string
	if rec.RecordingPath != "" {
		recordingPath = &rec.RecordingPath
	}

	const q = `
		INSERT INTO call_records
		    (room_name, assistant_id, assistant_name, to_number, recording_path,
		     transcript, started_at, ended_at, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (room_name, ended_at) DO NOTHING`

	_, err = s.pool.Exec(ctx, q,
		rec.RoomName,
		rec.AssistantID,
		rec.AssistantName,
		rec.ToNumber,
		recordingPath,
		tr,
		rec.StartedAt,
		rec.EndedAt,
		rec.DurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("call store: save %q: %w", rec.RoomName, err)
	}
	return nil
}

// ListCalls implements [store.CallStore]. Results are ordered by end time,
// newest first.
func (s *Store) ListCalls(ctx context.Context, f store.CallFilter) ([]callrecord.Record, error) {
	var (
		args       []any
		conditions []string
	)
	if f.AssistantID != "" {
		args = append(args, f.AssistantID)
		conditions = append(conditions, fmt.Sprintf("assistant_id = $%d", len(args)))
	}

	q := "SELECT room_name, assistant_id, assistant_name, to_number, recording_path,\n" +
		"       transcript, started_at, ended_at, duration_minutes\n" +
		"FROM   call_records\n"
	if len(conditions) > 0 {
		q += "WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n"
	}
	q += "ORDER  BY ended_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("call store: list: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (callrecord.Record, error) {
		return scanCall(row)
	})
	if err != nil {
		return nil, fmt.Errorf("call store: list: %w", err)
	}
	return records, nil
}

// scanCall scans one call_records row, decoding the transcript JSONB column.
func scanCall(row pgx.Row) (callrecord.Record, error) {
	var (
		rec           callrecord.Record
		recordingPath *string
		tr            []byte
	)
	if err := row.Scan(
		&rec.RoomName,
		&rec.AssistantID,
		&rec.AssistantName,
		&rec.ToNumber,
		&recordingPath,
		&tr,
		&rec.StartedAt,
		&rec.EndedAt,
		&rec.DurationMinutes,
	); err != nil {
		return callrecord.Record{}, err
	}
	if recordingPath != nil {
		rec.RecordingPath = *recordingPath
	}
	if len(tr) > 0 {
		var entries []transcript.Entry
		if err := json.Unmarshal(tr, &entries); err != nil {
			return callrecord.Record{}, fmt.Errorf("decode transcript: %w", err)
		}
		rec.Transcript = entries
	}
	return rec, nil
}
