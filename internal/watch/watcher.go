// Package watch keeps the catalog synchronized by running reconcile
// passes whenever the update tree changes. Bursts of filesystem events
// coalesce through a debounce timer into a single pass, and an optional
// ticker forces periodic full rescans for changes the watcher missed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/faults"
	"patchtrack/internal/logging"
	"patchtrack/internal/metrics"
	"patchtrack/internal/notifications"
	"patchtrack/internal/preflight"
	"patchtrack/internal/reconcile"
	"patchtrack/internal/scan"
)

// Watcher drives reconcile passes from filesystem events.
type Watcher struct {
	cfg      *config.Config
	rec      *reconcile.Reconciler
	metrics  *metrics.Metrics
	notifier notifications.Service
	logger   *slog.Logger
	host     string
	debounce time.Duration
	rescan   time.Duration
	addr     net.Addr
}

// New builds a watcher. A nil metrics value gets a fresh registry; a nil
// logger disables logging.
func New(cfg *config.Config, rec *reconcile.Reconciler, m *metrics.Metrics, logger *slog.Logger) *Watcher {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		cfg:      cfg,
		rec:      rec,
		metrics:  m,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "watch"),
		host:     cfg.Host.Name,
		debounce: time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
		rescan:   time.Duration(cfg.Watch.RescanInterval) * time.Second,
	}
}

// Metrics returns the registry the watcher reports into.
func (w *Watcher) Metrics() *metrics.Metrics {
	return w.metrics
}

// Run blocks until ctx is canceled. The base directory is watched before
// the initial pass so no event falls between them; update subdirectories
// are (re)watched after every pass because fsnotify does not recurse.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.runPreflightChecks(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return faults.Wrap(
			faults.ErrIO,
			"watch",
			"create watcher",
			"Failed to create the filesystem watcher",
			err,
		)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Paths.BaseDir); err != nil {
		return faults.Wrap(
			faults.ErrIO,
			"watch",
			"watch base directory",
			"Base directory cannot be watched",
			err,
		)
	}

	server, err := w.startMetricsServer()
	if err != nil {
		return err
	}
	if server != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	w.runPass(ctx)
	w.refreshWatches(fsw)

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	var rescanC <-chan time.Time
	if w.rescan > 0 {
		ticker := time.NewTicker(w.rescan)
		defer ticker.Stop()
		rescanC = ticker.C
	}

	w.logger.Info("watching update tree",
		logging.String("base_dir", w.cfg.Paths.BaseDir),
		logging.Duration("debounce", w.debounce),
		logging.Duration("rescan_interval", w.rescan),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error(err))
		case <-trigger:
			w.runPass(ctx)
			w.refreshWatches(fsw)
		case <-rescanC:
			w.runPass(ctx)
			w.refreshWatches(fsw)
		}
	}
}

// runPreflightChecks validates the environment before the watch loop
// starts. Returns nil when all checks pass, or an error describing all
// failures, so the daemon never loops on passes that cannot succeed.
func (w *Watcher) runPreflightChecks() error {
	results := preflight.RunAll(w.cfg)
	if preflight.AllPassed(results) {
		return nil
	}

	var failures []string
	for _, result := range results {
		if result.Passed {
			continue
		}
		w.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return faults.Wrap(faults.ErrConfig, "watch", "preflight", strings.Join(failures, "; "), nil)
}

// relevant filters chmod noise and everything under the reserved data
// directory, which holds the store and would otherwise retrigger passes
// from patchtrack's own writes.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.cfg.Paths.BaseDir, event.Name)
	if err != nil {
		return true
	}
	if rel == scan.ReservedDataDir || strings.HasPrefix(rel, scan.ReservedDataDir+string(filepath.Separator)) {
		return false
	}
	return true
}

func (w *Watcher) runPass(ctx context.Context) {
	summary, err := w.rec.Run(ctx, w.host)
	if err != nil {
		w.metrics.ObservePassFailure(faults.Kind(err))
		w.logger.Error("pass failed",
			logging.String(logging.FieldErrorKind, faults.Kind(err)),
			logging.Error(err),
		)
		w.notify(ctx, func(nctx context.Context) error {
			return w.notifier.NotifyPassFailed(nctx, w.host, err)
		})
		return
	}
	w.metrics.ObservePass(metrics.PassStats{
		UpdatesSeen:      summary.UpdatesSeen,
		UpdatesAdded:     summary.UpdatesAdded,
		UpdatesRemoved:   summary.UpdatesRemoved,
		FilesAdded:       summary.FilesAdded,
		FilesRemoved:     summary.FilesRemoved,
		PairsSeeded:      summary.PairsSeeded,
		UpdatesEmpty:     summary.StatusCounts[catalog.StatusEmpty],
		UpdatesFailed:    summary.StatusCounts[catalog.StatusFailed],
		UpdatesInstalled: summary.StatusCounts[catalog.StatusInstalled],
		UpdatesPending:   summary.StatusCounts[catalog.StatusPending],
		Duration:         summary.Duration(),
	})
	if summary.Changed() {
		w.logger.Info("pass applied changes",
			logging.String(logging.FieldRun, summary.RunID),
			logging.Int64("updates_added", summary.UpdatesAdded),
			logging.Int64("updates_removed", summary.UpdatesRemoved),
			logging.Int64("files_added", summary.FilesAdded),
			logging.Int64("files_removed", summary.FilesRemoved),
		)
		w.notify(ctx, func(nctx context.Context) error {
			return w.notifier.NotifyPassChanges(nctx, w.host,
				int(summary.UpdatesAdded), int(summary.UpdatesRemoved),
				int(summary.FilesAdded), int(summary.FilesRemoved))
		})
	} else {
		w.logger.Debug("pass found no changes", logging.String(logging.FieldRun, summary.RunID))
	}
}

// notify sends best-effort. A failed push never fails the pass.
func (w *Watcher) notify(ctx context.Context, send func(context.Context) error) {
	if w.notifier == nil {
		return
	}
	if err := send(ctx); err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
}

// refreshWatches re-adds a watch for every update directory. Removed
// directories drop out of fsnotify on their own.
func (w *Watcher) refreshWatches(fsw *fsnotify.Watcher) {
	listings, err := scan.Scan(w.cfg.Paths.BaseDir)
	if err != nil {
		w.logger.Warn("failed to refresh watches", logging.Error(err))
		return
	}
	for _, listing := range listings {
		dir := filepath.Join(w.cfg.Paths.BaseDir, listing.Name)
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("failed to watch update directory",
				logging.String(logging.FieldUpdate, listing.Name),
				logging.Error(err),
			)
		}
	}
}

// startMetricsServer serves /metrics and /healthz when a bind address is
// configured. Returns nil without one.
func (w *Watcher) startMetricsServer() (*http.Server, error) {
	bind := w.cfg.Metrics.Bind
	if bind == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, faults.Wrap(
			faults.ErrConfig,
			"watch",
			"bind metrics",
			"Metrics address "+bind+" cannot be bound",
			err,
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("metrics server error", logging.Error(err))
		}
	}()
	w.addr = ln.Addr()
	w.logger.Info("metrics endpoint listening", logging.String("bind", w.addr.String()))
	return server, nil
}
