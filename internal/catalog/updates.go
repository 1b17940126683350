package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureUpdate inserts a row for name unless one already exists, deleted or
// not. The conflict no-op keeps soft-deletes monotonic: a directory that
// reappears after deletion collides with its old row and stays deleted.
func (s *Store) EnsureUpdate(ctx context.Context, name string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO updates (name, added_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("ensure update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ActiveUpdateByName returns the non-deleted update named name, or nil when
// it is absent or soft-deleted.
func (s *Store) ActiveUpdateByName(ctx context.Context, name string) (*Update, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+updateColumns+` FROM updates WHERE (deleted IS NULL OR deleted = 0) AND name = ?`,
		name,
	)
	update, err := scanUpdate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get update by name: %w", err)
	}
	return update, nil
}

// UpdateByID fetches an update by identifier regardless of deletion state.
func (s *Store) UpdateByID(ctx context.Context, id int64) (*Update, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+updateColumns+` FROM updates WHERE id = ?`, id)
	update, err := scanUpdate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get update: %w", err)
	}
	return update, nil
}

// MarkUpdatesDeletedExcept soft-deletes every non-deleted update whose name is
// not in keep, returning how many rows were flipped. Already-deleted rows are
// never touched, so repeated calls report zero.
func (s *Store) MarkUpdatesDeletedExcept(ctx context.Context, keep []string) (int64, error) {
	query := `UPDATE updates SET deleted = 1 WHERE (deleted IS NULL OR deleted = 0)`
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		query += ` AND name NOT IN (` + makePlaceholders(len(keep)) + `)`
		for _, name := range keep {
			args = append(args, name)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark updates deleted: %w", err)
	}
	return res.RowsAffected()
}
