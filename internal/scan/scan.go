// Package scan reads the update tree beneath the base directory and
// turns it into ordered listings for reconciliation. Scanning never
// writes to the tree.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"patchtrack/internal/faults"
)

// ReservedDataDir is the base-directory entry that holds patchtrack's
// own state. It never counts as an update.
const ReservedDataDir = "data"

// FileEntry is one regular file inside an update directory, split into
// the name and extension components the catalog stores.
type FileEntry struct {
	Name      string
	Extension string
}

// DisplayName rejoins the split components.
func (f FileEntry) DisplayName() string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}

// UpdateListing is one immediate subdirectory of the base directory
// together with the files found directly inside it.
type UpdateListing struct {
	Name  string
	Files []FileEntry
}

// Scan lists every update directory under root. Each immediate
// subdirectory except the reserved data directory yields one listing;
// files beginning with "." are skipped and nested directories are not
// descended into. os.ReadDir returns entries sorted by name, which
// keeps repeated scans of an unchanged tree identical.
func Scan(root string) ([]UpdateListing, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, faults.Wrap(
			faults.ErrIO,
			"scan",
			"read base directory",
			"Base directory is missing or unreadable",
			err,
		)
	}
	listings := make([]UpdateListing, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ReservedDataDir {
			continue
		}
		files, err := scanUpdateDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		listings = append(listings, UpdateListing{Name: entry.Name(), Files: files})
	}
	return listings, nil
}

func scanUpdateDir(dir string) ([]FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, faults.Wrap(
			faults.ErrIO,
			"scan",
			"read update directory",
			"Update directory is unreadable",
			err,
		)
	}
	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		basename := entry.Name()
		if strings.HasPrefix(basename, ".") {
			continue
		}
		name, extension := SplitName(basename)
		files = append(files, FileEntry{Name: name, Extension: extension})
	}
	return files, nil
}

// SplitName splits a basename at the final dot. Without a dot the whole
// basename is the name and the extension is empty, so "archive.tar.gz"
// becomes ("archive.tar", "gz") and "README" becomes ("README", "").
func SplitName(basename string) (name, extension string) {
	idx := strings.LastIndex(basename, ".")
	if idx < 0 {
		return basename, ""
	}
	return basename[:idx], basename[idx+1:]
}
