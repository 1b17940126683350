package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureFile inserts a file row for (name, extension) under updateID unless
// one already exists. Like EnsureUpdate, the conflict no-op preserves the
// deleted flag of a path that reappears.
func (s *Store) EnsureFile(ctx context.Context, updateID int64, name, extension string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO files (name, extension, update_id, added_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(name, extension, update_id) DO NOTHING`,
		name,
		extension,
		updateID,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("ensure file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FileByID fetches a file by identifier regardless of deletion state.
func (s *Store) FileByID(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

// ActiveFilesForUpdate returns the non-deleted files under updateID ordered
// by name then extension.
func (s *Store) ActiveFilesForUpdate(ctx context.Context, updateID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM files
         WHERE (deleted IS NULL OR deleted = 0) AND update_id = ?
         ORDER BY name, extension`,
		updateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// MarkFileDeleted soft-deletes one file. Calling it on an already-deleted or
// unknown id is a no-op.
func (s *Store) MarkFileDeleted(ctx context.Context, id int64) error {
	if err := s.execWithoutResult(
		ctx,
		`UPDATE files SET deleted = 1 WHERE (deleted IS NULL OR deleted = 0) AND id = ?`,
		id,
	); err != nil {
		return fmt.Errorf("mark file deleted: %w", err)
	}
	return nil
}
