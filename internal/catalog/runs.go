package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordRun persists one finished reconcile pass.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if err := s.execWithoutResult(
		ctx,
		`INSERT INTO reconcile_runs (
            id, host_id, started_at, finished_at,
            updates_added, updates_removed, files_added, files_removed, pairs_seeded
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.HostID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.UpdatesAdded,
		run.UpdatesRemoved,
		run.FilesAdded,
		run.FilesRemoved,
		run.PairsSeeded,
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished reconcile pass for hostID, or
// nil when the host has never reconciled.
func (s *Store) LastRun(ctx context.Context, hostID int64) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, host_id, started_at, finished_at,
                updates_added, updates_removed, files_added, files_removed, pairs_seeded
         FROM reconcile_runs
         WHERE host_id = ?
         ORDER BY finished_at DESC
         LIMIT 1`,
		hostID,
	)

	var (
		run         Run
		startedRaw  string
		finishedRaw string
	)
	err := row.Scan(
		&run.ID,
		&run.HostID,
		&startedRaw,
		&finishedRaw,
		&run.UpdatesAdded,
		&run.UpdatesRemoved,
		&run.FilesAdded,
		&run.FilesRemoved,
		&run.PairsSeeded,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}

	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = finished
	}
	return &run, nil
}
