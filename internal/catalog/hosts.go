package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureHost inserts a host row for name if missing and returns the row.
func (s *Store) EnsureHost(ctx context.Context, name string) (*Host, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO hosts (name, added_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("ensure host: %w", err)
	}

	host, err := s.HostByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, fmt.Errorf("ensure host: %q missing after insert", name)
	}
	return host, nil
}

// HostByName fetches a host by name, or nil when unknown.
func (s *Store) HostByName(ctx context.Context, name string) (*Host, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM hosts WHERE name = ?`, name)
	host, err := scanHost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get host: %w", err)
	}
	return host, nil
}

// Hosts returns every known host ordered by name.
func (s *Store) Hosts(ctx context.Context) ([]*Host, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hostColumns+` FROM hosts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*Host
	for rows.Next() {
		host, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// EnsureHostUpdate seeds the (host, update) pair row with all flags zero.
// An existing row, whatever its flags, is left untouched.
func (s *Store) EnsureHostUpdate(ctx context.Context, hostID, updateID int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO host_updates (host_id, update_id)
         VALUES (?, ?)
         ON CONFLICT(host_id, update_id) DO NOTHING`,
		hostID,
		updateID,
	)
	if err != nil {
		return false, fmt.Errorf("ensure host update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// EnsureHostFile seeds the (host, file) pair row with installed=0, failed=0.
// An existing row is never reset, so recorded install outcomes survive every
// later reconcile pass.
func (s *Store) EnsureHostFile(ctx context.Context, hostID, fileID int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO host_files (host_id, file_id)
         VALUES (?, ?)
         ON CONFLICT(host_id, file_id) DO NOTHING`,
		hostID,
		fileID,
	)
	if err != nil {
		return false, fmt.Errorf("ensure host file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetFileResult records an installer outcome on the (host, file) pair row.
// It reports false when no pair row exists, which means the reconciler has
// never observed that file for that host.
func (s *Store) SetFileResult(ctx context.Context, hostID, fileID int64, installed, failed bool) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE host_files SET installed = ?, failed = ? WHERE host_id = ? AND file_id = ?`,
		boolToInt(installed),
		boolToInt(failed),
		hostID,
		fileID,
	)
	if err != nil {
		return false, fmt.Errorf("set file result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetHostUpdateStatus overwrites the three rollup flags on the (host, update)
// pair row. Only the aggregator should call this.
func (s *Store) SetHostUpdateStatus(ctx context.Context, hostID, updateID int64, installed, failed, empty bool) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE host_updates SET installed = ?, failed = ?, empty = ? WHERE host_id = ? AND update_id = ?`,
		boolToInt(installed),
		boolToInt(failed),
		boolToInt(empty),
		hostID,
		updateID,
	)
	if err != nil {
		return false, fmt.Errorf("set host update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
