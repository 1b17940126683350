package installer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/faults"
	"patchtrack/internal/logging"
	"patchtrack/internal/notifications"
	"patchtrack/internal/rollup"
)

// Coordinator resolves install commands against the catalog, drives the
// Runner per file, and keeps rollups fresh after every write-back.
type Coordinator struct {
	store    *catalog.Store
	agg      *rollup.Aggregator
	runner   Runner
	notifier notifications.Service
	logger   *slog.Logger
	baseDir  string
}

// NewCoordinator wires a coordinator. A nil logger disables logging.
func NewCoordinator(cfg *config.Config, store *catalog.Store, runner Runner, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		store:    store,
		agg:      rollup.New(store),
		runner:   runner,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "installer"),
		baseDir:  cfg.Paths.BaseDir,
	}
}

// Outcome summarizes one applied command.
type Outcome struct {
	Update    string
	Attempted int
	Installed int
	Failed    int
	Status    catalog.Status
}

// Apply executes command for hostName. Unknown hosts, updates, and files
// are not-found errors; a host is known once it has reconciled at least
// once. Each file's outcome is recorded and the rollup recomputed before
// the next file runs, so an aborted command leaves accurate state.
func (c *Coordinator) Apply(ctx context.Context, hostName string, command Command) (*Outcome, error) {
	host, err := c.resolveHost(ctx, hostName)
	if err != nil {
		return nil, err
	}
	update, err := c.resolveUpdate(ctx, command.Update)
	if err != nil {
		return nil, err
	}

	var files []*catalog.File
	switch command.Kind {
	case KindInstallAll:
		files, err = c.store.ActiveFilesForUpdate(ctx, update.ID)
		if err != nil {
			return nil, storeFault("list files", err)
		}
	case KindRetryFailed:
		files, err = c.store.FailedFilesForUpdate(ctx, host.ID, update.ID)
		if err != nil {
			return nil, storeFault("list failed files", err)
		}
	case KindInstallFile:
		file, err := c.store.FileByID(ctx, command.FileID)
		if err != nil {
			return nil, storeFault("load file", err)
		}
		if file == nil || file.Deleted || file.UpdateID != update.ID {
			return nil, faults.Wrap(
				faults.ErrNotFound,
				"installer",
				"resolve file",
				fmt.Sprintf("Update %s has no active file %d", update.Name, command.FileID),
				nil,
			)
		}
		files = []*catalog.File{file}
	default:
		return nil, fmt.Errorf("unsupported install command %s", command.Kind)
	}

	outcome := &Outcome{Update: update.Name, Attempted: len(files)}
	for _, file := range files {
		report, err := c.runner.Install(ctx, Request{
			Host:   host.Name,
			Update: update.Name,
			File:   file.DisplayName(),
			Path:   filepath.Join(c.baseDir, update.Name, file.DisplayName()),
		})
		if err != nil {
			return nil, err
		}
		status, err := c.writeBack(ctx, host, update.ID, file.ID, report)
		if err != nil {
			return nil, err
		}
		outcome.Status = status
		if report.Installed {
			outcome.Installed++
		}
		if report.Failed {
			outcome.Failed++
		}
	}

	if outcome.Attempted == 0 {
		status, err := c.agg.Recompute(ctx, host.ID, update.ID)
		if err != nil {
			return nil, err
		}
		outcome.Status = status
	}
	c.logger.Info("command applied",
		logging.String("command", command.Kind.String()),
		logging.String(logging.FieldUpdate, update.Name),
		logging.String(logging.FieldHost, host.Name),
		logging.Int("attempted", outcome.Attempted),
		logging.Int("installed", outcome.Installed),
		logging.Int("failed", outcome.Failed),
		logging.String("status", string(outcome.Status)),
	)
	c.notifyOutcome(ctx, host.Name, outcome)
	return outcome, nil
}

// notifyOutcome pushes a summary for attempted commands. A failed push is
// logged and dropped; the install result is already durable at this point.
func (c *Coordinator) notifyOutcome(ctx context.Context, hostName string, outcome *Outcome) {
	if c.notifier == nil || outcome.Attempted == 0 {
		return
	}
	var err error
	switch {
	case outcome.Failed > 0:
		err = c.notifier.NotifyInstallFailed(ctx, hostName, outcome.Update, outcome.Failed)
	case outcome.Status == catalog.StatusInstalled:
		err = c.notifier.NotifyInstallCompleted(ctx, hostName, outcome.Update, outcome.Installed)
	}
	if err != nil {
		c.logger.Warn("notification failed", logging.Error(err))
	}
}

// RecordResult is the write-back path for fully external installers: it
// stores the reported outcome for one file, re-aggregates the owning
// update, and returns that update with its fresh status. The pair row
// must already exist, which it does for every file a reconcile pass has
// seen for the host.
func (c *Coordinator) RecordResult(ctx context.Context, hostName string, fileID int64, installed, failed bool) (*catalog.Update, catalog.Status, error) {
	host, err := c.resolveHost(ctx, hostName)
	if err != nil {
		return nil, "", err
	}
	file, err := c.store.FileByID(ctx, fileID)
	if err != nil {
		return nil, "", storeFault("load file", err)
	}
	if file == nil {
		return nil, "", faults.Wrap(
			faults.ErrNotFound,
			"installer",
			"resolve file",
			fmt.Sprintf("No file with id %d", fileID),
			nil,
		)
	}
	update, err := c.store.UpdateByID(ctx, file.UpdateID)
	if err != nil {
		return nil, "", storeFault("load update", err)
	}
	if update == nil {
		return nil, "", faults.Wrap(
			faults.ErrStore,
			"installer",
			"load update",
			fmt.Sprintf("File %d references missing update %d", fileID, file.UpdateID),
			nil,
		)
	}
	status, err := c.writeBack(ctx, host, file.UpdateID, file.ID, Report{Installed: installed, Failed: failed})
	if err != nil {
		return nil, "", err
	}
	return update, status, nil
}

func (c *Coordinator) writeBack(ctx context.Context, host *catalog.Host, updateID, fileID int64, report Report) (catalog.Status, error) {
	updated, err := c.store.SetFileResult(ctx, host.ID, fileID, report.Installed, report.Failed)
	if err != nil {
		return "", storeFault("record outcome", err)
	}
	if !updated {
		return "", faults.Wrap(
			faults.ErrNotFound,
			"installer",
			"record outcome",
			fmt.Sprintf("File %d is not tracked for host %s (reconcile first)", fileID, host.Name),
			nil,
		)
	}
	return c.agg.Recompute(ctx, host.ID, updateID)
}

func (c *Coordinator) resolveHost(ctx context.Context, name string) (*catalog.Host, error) {
	host, err := c.store.HostByName(ctx, name)
	if err != nil {
		return nil, storeFault("load host", err)
	}
	if host == nil {
		return nil, faults.Wrap(
			faults.ErrNotFound,
			"installer",
			"resolve host",
			fmt.Sprintf("Host %s is unknown (reconcile first)", name),
			nil,
		)
	}
	return host, nil
}

func (c *Coordinator) resolveUpdate(ctx context.Context, name string) (*catalog.Update, error) {
	update, err := c.store.ActiveUpdateByName(ctx, name)
	if err != nil {
		return nil, storeFault("load update", err)
	}
	if update == nil {
		return nil, faults.Wrap(
			faults.ErrNotFound,
			"installer",
			"resolve update",
			fmt.Sprintf("No active update named %s", name),
			nil,
		)
	}
	return update, nil
}

func storeFault(operation string, err error) error {
	return faults.Wrap(faults.ErrStore, "installer", operation, "Catalog access failed", err)
}
