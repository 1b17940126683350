package catalog

import "time"

// Status is the rollup install state of one update on one host. Exactly one
// of the four values holds at a time; precedence when recomputing is
// empty > failed > installed > pending.
type Status string

const (
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
	StatusInstalled Status = "installed"
	StatusPending   Status = "pending"
)

// StatusFromFlags decodes the three stored host_updates booleans into a
// Status. Rows written by the aggregator always have at most one flag set;
// an all-zero row (including a freshly seeded one) is pending.
func StatusFromFlags(installed, failed, empty bool) Status {
	switch {
	case empty:
		return StatusEmpty
	case failed:
		return StatusFailed
	case installed:
		return StatusInstalled
	default:
		return StatusPending
	}
}

// Flags expands the status back into the three stored booleans. Pending
// stores as all-zero.
func (s Status) Flags() (installed, failed, empty bool) {
	switch s {
	case StatusEmpty:
		return false, false, true
	case StatusFailed:
		return false, true, false
	case StatusInstalled:
		return true, false, false
	default:
		return false, false, false
	}
}

// Update is one maintenance bundle, named after its directory under the base
// path. Deleted reports the soft-delete flag; rows are never removed.
type Update struct {
	ID      int64
	Name    string
	AddedAt time.Time
	Deleted bool
}

// File is one entry inside an update directory. Extension holds the part of
// the basename after the final dot, or "" when the basename has none.
type File struct {
	ID        int64
	Name      string
	Extension string
	UpdateID  int64
	AddedAt   time.Time
	Deleted   bool
}

// DisplayName reassembles the on-disk basename.
func (f *File) DisplayName() string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}

// Host is one tracked machine.
type Host struct {
	ID      int64
	Name    string
	AddedAt time.Time
}

// Tally counts the non-deleted files of one update together with their
// host_files flags for one host. Files the host has no pair row for count
// toward Total only.
type Tally struct {
	Total     int64
	Installed int64
	Failed    int64
}

// UpdateStatus is one row of the updates-for-host projection.
type UpdateStatus struct {
	ID     int64
	Name   string
	Status Status
}

// FileStatus is one row of the files-for-update projection.
type FileStatus struct {
	ID          int64
	DisplayName string
	Installed   bool
	Failed      bool
}

// Run records one finished reconcile pass for audit and the status command.
type Run struct {
	ID             string
	HostID         int64
	StartedAt      time.Time
	FinishedAt     time.Time
	UpdatesAdded   int64
	UpdatesRemoved int64
	FilesAdded     int64
	FilesRemoved   int64
	PairsSeeded    int64
}
