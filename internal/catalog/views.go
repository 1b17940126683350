package catalog

import (
	"context"
	"fmt"
)

// UpdatesForHost is the updates-for-host projection: every non-deleted
// update with its decoded rollup status for the given host, ordered by name.
// Updates the host has no pair row for yet read as pending.
func (s *Store) UpdatesForHost(ctx context.Context, hostID int64) ([]UpdateStatus, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT u.id, u.name,
                COALESCE(hu.installed, 0), COALESCE(hu.failed, 0), COALESCE(hu.empty, 0)
         FROM updates u
         LEFT JOIN host_updates hu ON hu.update_id = u.id AND hu.host_id = ?
         WHERE (u.deleted IS NULL OR u.deleted = 0)
         ORDER BY u.name`,
		hostID,
	)
	if err != nil {
		return nil, fmt.Errorf("updates for host: %w", err)
	}
	defer rows.Close()

	var out []UpdateStatus
	for rows.Next() {
		var (
			row                      UpdateStatus
			installed, failed, empty int
		)
		if err := rows.Scan(&row.ID, &row.Name, &installed, &failed, &empty); err != nil {
			return nil, err
		}
		row.Status = StatusFromFlags(installed != 0, failed != 0, empty != 0)
		out = append(out, row)
	}
	return out, rows.Err()
}

// FilesForUpdate is the files-for-update projection: every non-deleted file
// under updateID with the host's recorded flags, ordered by display name.
// Files the host has no pair row for yet read as installed=0, failed=0.
func (s *Store) FilesForUpdate(ctx context.Context, hostID, updateID int64) ([]FileStatus, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT f.id,
                CASE WHEN f.extension = '' THEN f.name ELSE f.name || '.' || f.extension END AS display_name,
                COALESCE(hf.installed, 0), COALESCE(hf.failed, 0)
         FROM files f
         LEFT JOIN host_files hf ON hf.file_id = f.id AND hf.host_id = ?
         WHERE (f.deleted IS NULL OR f.deleted = 0) AND f.update_id = ?
         ORDER BY display_name`,
		hostID,
		updateID,
	)
	if err != nil {
		return nil, fmt.Errorf("files for update: %w", err)
	}
	defer rows.Close()

	var out []FileStatus
	for rows.Next() {
		var (
			row               FileStatus
			installed, failed int
		)
		if err := rows.Scan(&row.ID, &row.DisplayName, &installed, &failed); err != nil {
			return nil, err
		}
		row.Installed = installed != 0
		row.Failed = failed != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

// FailedFilesForUpdate returns the non-deleted files under updateID whose
// pair row for hostID currently records failed=1, ordered by name then
// extension. This feeds the retry command.
func (s *Store) FailedFilesForUpdate(ctx context.Context, hostID, updateID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT f.id, f.name, f.extension, f.update_id, f.added_at, f.deleted
         FROM files f
         JOIN host_files hf ON hf.file_id = f.id AND hf.host_id = ?
         WHERE (f.deleted IS NULL OR f.deleted = 0) AND f.update_id = ? AND hf.failed = 1
         ORDER BY f.name, f.extension`,
		hostID,
		updateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed files for update: %w", err)
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

// InstallTally counts the non-deleted files under updateID and how many of
// them hostID has recorded installed or failed. Files without a pair row for
// the host contribute to Total only, which keeps the rollup conservative.
func (s *Store) InstallTally(ctx context.Context, hostID, updateID int64) (Tally, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(f.id),
                COALESCE(SUM(CASE WHEN hf.installed = 1 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN hf.failed = 1 THEN 1 ELSE 0 END), 0)
         FROM files f
         LEFT JOIN host_files hf ON hf.file_id = f.id AND hf.host_id = ?
         WHERE (f.deleted IS NULL OR f.deleted = 0) AND f.update_id = ?`,
		hostID,
		updateID,
	)

	var tally Tally
	if err := row.Scan(&tally.Total, &tally.Installed, &tally.Failed); err != nil {
		return Tally{}, fmt.Errorf("install tally: %w", err)
	}
	return tally, nil
}
