package reconcile

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"patchtrack/internal/catalog"
	"patchtrack/internal/faults"
	"patchtrack/internal/logging"
	"patchtrack/internal/scan"
)

// Run executes one reconcile pass for hostName. The pass is serialized
// through the lock file; a second concurrent caller fails instead of
// interleaving. Store writes abort the pass on first failure, leaving a
// partial but re-runnable state behind.
func (r *Reconciler) Run(ctx context.Context, hostName string) (*Summary, error) {
	if hostName == "" {
		return nil, faults.Wrap(
			faults.ErrConfig,
			"reconcile",
			"resolve host",
			"Host name is empty",
			nil,
		)
	}

	locked, err := r.lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(
			faults.ErrIO,
			"reconcile",
			"acquire lock",
			"Failed to acquire the reconcile lock",
			err,
		)
	}
	if !locked {
		return nil, faults.Wrap(
			faults.ErrIO,
			"reconcile",
			"acquire lock",
			"Another reconcile pass is already running",
			nil,
		)
	}
	defer func() {
		_ = r.lock.Unlock()
	}()

	return r.runLocked(ctx, hostName)
}

func (r *Reconciler) runLocked(ctx context.Context, hostName string) (*Summary, error) {
	summary := &Summary{
		RunID:        uuid.NewString(),
		Host:         hostName,
		StartedAt:    time.Now().UTC(),
		StatusCounts: make(map[catalog.Status]int),
	}
	logger := r.logger.With(
		logging.String(logging.FieldRun, summary.RunID),
		logging.String(logging.FieldHost, hostName),
	)
	logger.Debug("pass started", logging.String("base_dir", r.cfg.Paths.BaseDir))

	listings, err := scan.Scan(r.cfg.Paths.BaseDir)
	if err != nil {
		return nil, err
	}
	summary.UpdatesSeen = len(listings)

	// Every update subtree must be fully accessible before anything is
	// written; one bad directory aborts the whole pass.
	for _, listing := range listings {
		dir := filepath.Join(r.cfg.Paths.BaseDir, listing.Name)
		if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return nil, faults.Wrap(
				faults.ErrIO,
				"reconcile",
				"check access",
				"Update directory "+listing.Name+" is not fully accessible",
				err,
			)
		}
	}

	names := make([]string, 0, len(listings))
	for _, listing := range listings {
		names = append(names, listing.Name)
		created, err := r.store.EnsureUpdate(ctx, listing.Name)
		if err != nil {
			return nil, storeFault("insert update", err)
		}
		if created {
			summary.UpdatesAdded++
			logger.Info("update discovered", logging.String(logging.FieldUpdate, listing.Name))
		}
	}

	removed, err := r.store.MarkUpdatesDeletedExcept(ctx, names)
	if err != nil {
		return nil, storeFault("retire updates", err)
	}
	summary.UpdatesRemoved = removed
	if removed > 0 {
		logger.Info("updates retired", logging.Int64("count", removed))
	}

	host, err := r.store.EnsureHost(ctx, hostName)
	if err != nil {
		return nil, storeFault("ensure host", err)
	}

	for _, listing := range listings {
		if err := r.reconcileUpdate(ctx, logger, host.ID, listing, summary); err != nil {
			return nil, err
		}
	}

	summary.FinishedAt = time.Now().UTC()
	r.recordRun(ctx, logger, host.ID, summary)
	logger.Info("pass complete",
		logging.Int("updates_seen", summary.UpdatesSeen),
		logging.Int64("updates_added", summary.UpdatesAdded),
		logging.Int64("updates_removed", summary.UpdatesRemoved),
		logging.Int64("files_added", summary.FilesAdded),
		logging.Int64("files_removed", summary.FilesRemoved),
		logging.Int64("pairs_seeded", summary.PairsSeeded),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, nil
}

// reconcileUpdate applies the file and pair-row steps for one scanned
// directory. Directories whose update row was soft deleted in an earlier
// pass stay retired: the conflicting insert above was a no-op, no active
// row resolves here, and their files are left untouched.
func (r *Reconciler) reconcileUpdate(ctx context.Context, logger *slog.Logger, hostID int64, listing scan.UpdateListing, summary *Summary) error {
	update, err := r.store.ActiveUpdateByName(ctx, listing.Name)
	if err != nil {
		return storeFault("load update", err)
	}
	if update == nil {
		logger.Debug("skipping retired update", logging.String(logging.FieldUpdate, listing.Name))
		return nil
	}

	created, err := r.store.EnsureHostUpdate(ctx, hostID, update.ID)
	if err != nil {
		return storeFault("seed host update", err)
	}
	if created {
		summary.PairsSeeded++
	}

	seen := make(map[[2]string]struct{}, len(listing.Files))
	for _, entry := range listing.Files {
		seen[[2]string{entry.Name, entry.Extension}] = struct{}{}
		created, err := r.store.EnsureFile(ctx, update.ID, entry.Name, entry.Extension)
		if err != nil {
			return storeFault("insert file", err)
		}
		if created {
			summary.FilesAdded++
		}
	}

	active, err := r.store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		return storeFault("list files", err)
	}
	for _, file := range active {
		if _, ok := seen[[2]string{file.Name, file.Extension}]; !ok {
			if err := r.store.MarkFileDeleted(ctx, file.ID); err != nil {
				return storeFault("retire file", err)
			}
			summary.FilesRemoved++
			continue
		}
		created, err := r.store.EnsureHostFile(ctx, hostID, file.ID)
		if err != nil {
			return storeFault("seed host file", err)
		}
		if created {
			summary.PairsSeeded++
		}
	}

	status, err := r.agg.Recompute(ctx, hostID, update.ID)
	if err != nil {
		return err
	}
	summary.StatusCounts[status]++
	return nil
}

// recordRun persists the audit row. The pass itself already succeeded, so
// a bookkeeping failure only logs.
func (r *Reconciler) recordRun(ctx context.Context, logger *slog.Logger, hostID int64, summary *Summary) {
	run := &catalog.Run{
		ID:             summary.RunID,
		HostID:         hostID,
		StartedAt:      summary.StartedAt,
		FinishedAt:     summary.FinishedAt,
		UpdatesAdded:   summary.UpdatesAdded,
		UpdatesRemoved: summary.UpdatesRemoved,
		FilesAdded:     summary.FilesAdded,
		FilesRemoved:   summary.FilesRemoved,
		PairsSeeded:    summary.PairsSeeded,
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		logger.Warn("failed to record run", logging.Error(err))
	}
}

func storeFault(operation string, err error) error {
	return faults.Wrap(faults.ErrStore, "reconcile", operation, "Catalog write failed", err)
}
