// Package reconcile synchronizes the update tree with the catalog for one
// host: new directories and files become rows, vanished ones are soft
// deleted, pair rows are seeded, and rollups are refreshed. A pass holds an
// exclusive file lock so two processes never interleave their writes.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/logging"
	"patchtrack/internal/rollup"
)

// Summary reports what one pass changed. An unchanged tree yields all-zero
// counters. StatusCounts holds the post-pass rollup status of every active
// update for the host.
type Summary struct {
	RunID          string
	Host           string
	StartedAt      time.Time
	FinishedAt     time.Time
	UpdatesSeen    int
	UpdatesAdded   int64
	UpdatesRemoved int64
	FilesAdded     int64
	FilesRemoved   int64
	PairsSeeded    int64
	StatusCounts   map[catalog.Status]int
}

// Changed reports whether the pass wrote anything.
func (s *Summary) Changed() bool {
	return s.UpdatesAdded+s.UpdatesRemoved+s.FilesAdded+s.FilesRemoved+s.PairsSeeded > 0
}

// Duration is the wall-clock length of the pass.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Reconciler runs passes against one catalog.
type Reconciler struct {
	cfg    *config.Config
	store  *catalog.Store
	agg    *rollup.Aggregator
	logger *slog.Logger
	lock   *flock.Flock
}

// New returns a reconciler for cfg and store. A nil logger disables
// logging.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		cfg:    cfg,
		store:  store,
		agg:    rollup.New(store),
		logger: logging.NewComponentLogger(logger, "reconcile"),
		lock:   flock.New(cfg.LockPath()),
	}
}
