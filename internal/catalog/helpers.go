package catalog

import (
	"database/sql"
	"errors"
	"time"
)

const updateColumns = "id, name, added_at, deleted"

func scanUpdate(scanner interface{ Scan(dest ...any) error }) (*Update, error) {
	var (
		id       int64
		name     string
		addedRaw sql.NullString
		deleted  sql.NullInt64
	)
	if err := scanner.Scan(&id, &name, &addedRaw, &deleted); err != nil {
		return nil, err
	}
	update := &Update{ID: id, Name: name}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		update.AddedAt = added
	}
	if deleted.Valid {
		update.Deleted = deleted.Int64 != 0
	}
	return update, nil
}

const fileColumns = "id, name, extension, update_id, added_at, deleted"

func scanFile(scanner interface{ Scan(dest ...any) error }) (*File, error) {
	var (
		id        int64
		name      string
		extension string
		updateID  int64
		addedRaw  sql.NullString
		deleted   sql.NullInt64
	)
	if err := scanner.Scan(&id, &name, &extension, &updateID, &addedRaw, &deleted); err != nil {
		return nil, err
	}
	file := &File{ID: id, Name: name, Extension: extension, UpdateID: updateID}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		file.AddedAt = added
	}
	if deleted.Valid {
		file.Deleted = deleted.Int64 != 0
	}
	return file, nil
}

const hostColumns = "id, name, added_at"

func scanHost(scanner interface{ Scan(dest ...any) error }) (*Host, error) {
	var (
		id       int64
		name     string
		addedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &addedRaw); err != nil {
		return nil, err
	}
	host := &Host{ID: id, Name: name}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		host.AddedAt = added
	}
	return host, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
