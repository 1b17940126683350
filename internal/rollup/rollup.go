// Package rollup derives per-host update status from recorded file
// outcomes and persists it on the host_updates pair row.
package rollup

import (
	"context"

	"patchtrack/internal/catalog"
	"patchtrack/internal/faults"
)

// Aggregator recomputes rollup status. It owns every write to the
// host_updates flags; nothing else mutates them.
type Aggregator struct {
	store *catalog.Store
}

// New returns an aggregator backed by store.
func New(store *catalog.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Compute maps a file tally onto a status. An update with no active
// files is empty; one recorded failure marks the whole update failed;
// installed requires every file installed; anything else is pending.
func Compute(tally catalog.Tally) catalog.Status {
	switch {
	case tally.Total == 0:
		return catalog.StatusEmpty
	case tally.Failed > 0:
		return catalog.StatusFailed
	case tally.Installed == tally.Total:
		return catalog.StatusInstalled
	default:
		return catalog.StatusPending
	}
}

// Recompute rereads the tally for one (host, update) pair, derives the
// status, and overwrites the pair row's flags. Safe to call repeatedly;
// the write is a pure function of the current host_files rows.
func (a *Aggregator) Recompute(ctx context.Context, hostID, updateID int64) (catalog.Status, error) {
	tally, err := a.store.InstallTally(ctx, hostID, updateID)
	if err != nil {
		return "", faults.Wrap(
			faults.ErrStore,
			"rollup",
			"tally outcomes",
			"Failed to tally install outcomes",
			err,
		)
	}
	status := Compute(tally)
	installed, failed, empty := status.Flags()
	if _, err := a.store.SetHostUpdateStatus(ctx, hostID, updateID, installed, failed, empty); err != nil {
		return "", faults.Wrap(
			faults.ErrStore,
			"rollup",
			"write rollup",
			"Failed to persist rollup status",
			err,
		)
	}
	return status, nil
}
