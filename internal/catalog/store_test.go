package catalog_test

import (
	"context"
	"testing"
	"time"

	"patchtrack/internal/catalog"
	"patchtrack/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.EnsureUpdate(ctx, "2024-01")
	if err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	if !created {
		t.Fatal("expected first insert to create a row")
	}

	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if update == nil || update.Name != "2024-01" {
		t.Fatalf("unexpected update: %#v", update)
	}
	if update.AddedAt.IsZero() {
		t.Fatal("expected added_at to be recorded")
	}
	if update.Deleted {
		t.Fatal("expected fresh update to be active")
	}

	// Reopening against the same file must accept the existing schema.
	second, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestEnsureUpdateIsConflictNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	created, err := store.EnsureUpdate(ctx, "2024-01")
	if err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	if created {
		t.Fatal("expected duplicate insert to be a no-op")
	}
}

func TestSoftDeleteIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	removed, err := store.MarkUpdatesDeletedExcept(ctx, nil)
	if err != nil {
		t.Fatalf("MarkUpdatesDeletedExcept failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 update removed, got %d", removed)
	}

	// Re-inserting the same name must not resurrect the row.
	created, err := store.EnsureUpdate(ctx, "2024-01")
	if err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	if created {
		t.Fatal("expected insert after delete to conflict")
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if update != nil {
		t.Fatalf("expected deleted update to stay hidden, got %#v", update)
	}

	// A second sweep finds nothing left to flip.
	removed, err = store.MarkUpdatesDeletedExcept(ctx, nil)
	if err != nil {
		t.Fatalf("MarkUpdatesDeletedExcept failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected idempotent sweep, got %d rows", removed)
	}
}

func TestMarkUpdatesDeletedExceptKeepsNamed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for _, name := range []string{"2024-01", "2024-02", "2024-03"} {
		if _, err := store.EnsureUpdate(ctx, name); err != nil {
			t.Fatalf("EnsureUpdate %s failed: %v", name, err)
		}
	}

	removed, err := store.MarkUpdatesDeletedExcept(ctx, []string{"2024-01", "2024-03"})
	if err != nil {
		t.Fatalf("MarkUpdatesDeletedExcept failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 update removed, got %d", removed)
	}

	for name, wantActive := range map[string]bool{"2024-01": true, "2024-02": false, "2024-03": true} {
		update, err := store.ActiveUpdateByName(ctx, name)
		if err != nil {
			t.Fatalf("ActiveUpdateByName %s failed: %v", name, err)
		}
		if got := update != nil; got != wantActive {
			t.Fatalf("update %s active = %v, want %v", name, got, wantActive)
		}
	}
}

func TestEnsureFileUniqueness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}

	created, err := store.EnsureFile(ctx, update.ID, "setup", "sh")
	if err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if !created {
		t.Fatal("expected first file insert to create a row")
	}
	created, err = store.EnsureFile(ctx, update.ID, "setup", "sh")
	if err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if created {
		t.Fatal("expected duplicate file insert to be a no-op")
	}

	// Same name with a different extension is a distinct file.
	created, err = store.EnsureFile(ctx, update.ID, "setup", "conf")
	if err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if !created {
		t.Fatal("expected different extension to create a row")
	}

	// Extensionless files occupy the empty-string extension slot.
	created, err = store.EnsureFile(ctx, update.ID, "README", "")
	if err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if !created {
		t.Fatal("expected extensionless file to create a row")
	}
	created, err = store.EnsureFile(ctx, update.ID, "README", "")
	if err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if created {
		t.Fatal("expected duplicate extensionless insert to be a no-op")
	}

	files, err := store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		t.Fatalf("ActiveFilesForUpdate failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
}

func TestFileDisplayName(t *testing.T) {
	withExt := catalog.File{Name: "setup", Extension: "sh"}
	if got := withExt.DisplayName(); got != "setup.sh" {
		t.Fatalf("unexpected display name: %q", got)
	}
	plain := catalog.File{Name: "README", Extension: ""}
	if got := plain.DisplayName(); got != "README" {
		t.Fatalf("unexpected display name: %q", got)
	}
}

func TestHostPairSeedingNeverResets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if _, err := store.EnsureFile(ctx, update.ID, "setup", "sh"); err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	files, err := store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		t.Fatalf("ActiveFilesForUpdate failed: %v", err)
	}
	file := files[0]

	created, err := store.EnsureHostFile(ctx, host.ID, file.ID)
	if err != nil {
		t.Fatalf("EnsureHostFile failed: %v", err)
	}
	if !created {
		t.Fatal("expected pair row to be created")
	}

	updated, err := store.SetFileResult(ctx, host.ID, file.ID, true, false)
	if err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}
	if !updated {
		t.Fatal("expected pair row to be updated")
	}

	// A later seeding pass must leave the recorded outcome alone.
	created, err = store.EnsureHostFile(ctx, host.ID, file.ID)
	if err != nil {
		t.Fatalf("EnsureHostFile failed: %v", err)
	}
	if created {
		t.Fatal("expected existing pair row to be untouched")
	}

	rows, err := store.FilesForUpdate(ctx, host.ID, update.ID)
	if err != nil {
		t.Fatalf("FilesForUpdate failed: %v", err)
	}
	if len(rows) != 1 || !rows[0].Installed || rows[0].Failed {
		t.Fatalf("expected installed flag to survive reseeding: %#v", rows)
	}
}

func TestSetFileResultWithoutPairRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	updated, err := store.SetFileResult(context.Background(), 42, 99, true, false)
	if err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}
	if updated {
		t.Fatal("expected no row to match")
	}
}

func TestUpdatesForHostProjection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	for _, name := range []string{"2024-02", "2024-01", "2024-03"} {
		if _, err := store.EnsureUpdate(ctx, name); err != nil {
			t.Fatalf("EnsureUpdate %s failed: %v", name, err)
		}
	}
	second, err := store.ActiveUpdateByName(ctx, "2024-02")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if _, err := store.EnsureHostUpdate(ctx, host.ID, second.ID); err != nil {
		t.Fatalf("EnsureHostUpdate failed: %v", err)
	}
	if _, err := store.SetHostUpdateStatus(ctx, host.ID, second.ID, false, true, false); err != nil {
		t.Fatalf("SetHostUpdateStatus failed: %v", err)
	}
	if _, err := store.MarkUpdatesDeletedExcept(ctx, []string{"2024-01", "2024-02"}); err != nil {
		t.Fatalf("MarkUpdatesDeletedExcept failed: %v", err)
	}

	rows, err := store.UpdatesForHost(ctx, host.ID)
	if err != nil {
		t.Fatalf("UpdatesForHost failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected deleted update excluded, got %#v", rows)
	}
	if rows[0].Name != "2024-01" || rows[1].Name != "2024-02" {
		t.Fatalf("expected name ordering, got %#v", rows)
	}
	if rows[0].Status != catalog.StatusPending {
		t.Fatalf("expected unseeded update to read pending, got %s", rows[0].Status)
	}
	if rows[1].Status != catalog.StatusFailed {
		t.Fatalf("expected failed rollup, got %s", rows[1].Status)
	}
}

func TestFilesForUpdateScopedToOwningUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	for _, name := range []string{"2024-01", "2024-02"} {
		if _, err := store.EnsureUpdate(ctx, name); err != nil {
			t.Fatalf("EnsureUpdate %s failed: %v", name, err)
		}
	}
	first, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	second, err := store.ActiveUpdateByName(ctx, "2024-02")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if _, err := store.EnsureFile(ctx, first.ID, "a", "sh"); err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}
	if _, err := store.EnsureFile(ctx, second.ID, "b", "conf"); err != nil {
		t.Fatalf("EnsureFile failed: %v", err)
	}

	// Rows with an unset deleted flag belong only to their own update; a
	// misgrouped deletion filter would leak 2024-02's file in here.
	rows, err := store.FilesForUpdate(ctx, host.ID, first.ID)
	if err != nil {
		t.Fatalf("FilesForUpdate failed: %v", err)
	}
	if len(rows) != 1 || rows[0].DisplayName != "a.sh" {
		t.Fatalf("expected only the owning update's file, got %#v", rows)
	}
}

func TestFilesForUpdateOrderAndDeletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	for _, f := range [][2]string{{"zz", "sh"}, {"README", ""}, {"aa", "conf"}} {
		if _, err := store.EnsureFile(ctx, update.ID, f[0], f[1]); err != nil {
			t.Fatalf("EnsureFile failed: %v", err)
		}
	}
	files, err := store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		t.Fatalf("ActiveFilesForUpdate failed: %v", err)
	}
	for _, file := range files {
		if file.Name == "zz" {
			if err := store.MarkFileDeleted(ctx, file.ID); err != nil {
				t.Fatalf("MarkFileDeleted failed: %v", err)
			}
		}
	}

	rows, err := store.FilesForUpdate(ctx, host.ID, update.ID)
	if err != nil {
		t.Fatalf("FilesForUpdate failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected deleted file excluded, got %#v", rows)
	}
	if rows[0].DisplayName != "README" || rows[1].DisplayName != "aa.conf" {
		t.Fatalf("expected display-name ordering, got %#v", rows)
	}
}

func TestInstallTallyCountsPerHost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	other := testsupport.MustEnsureHost(t, store, "build-08")
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, err := store.EnsureFile(ctx, update.ID, name, "sh"); err != nil {
			t.Fatalf("EnsureFile failed: %v", err)
		}
	}
	files, err := store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		t.Fatalf("ActiveFilesForUpdate failed: %v", err)
	}
	for _, file := range files {
		if _, err := store.EnsureHostFile(ctx, host.ID, file.ID); err != nil {
			t.Fatalf("EnsureHostFile failed: %v", err)
		}
	}
	if _, err := store.SetFileResult(ctx, host.ID, files[0].ID, true, false); err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}
	if _, err := store.SetFileResult(ctx, host.ID, files[1].ID, false, true); err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}

	tally, err := store.InstallTally(ctx, host.ID, update.ID)
	if err != nil {
		t.Fatalf("InstallTally failed: %v", err)
	}
	if tally.Total != 3 || tally.Installed != 1 || tally.Failed != 1 {
		t.Fatalf("unexpected tally: %#v", tally)
	}

	// The second host never recorded anything; its tally only sees totals.
	tally, err = store.InstallTally(ctx, other.ID, update.ID)
	if err != nil {
		t.Fatalf("InstallTally failed: %v", err)
	}
	if tally.Total != 3 || tally.Installed != 0 || tally.Failed != 0 {
		t.Fatalf("unexpected tally for other host: %#v", tally)
	}
}

func TestFailedFilesForUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")
	if _, err := store.EnsureUpdate(ctx, "2024-01"); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, "2024-01")
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := store.EnsureFile(ctx, update.ID, name, "sh"); err != nil {
			t.Fatalf("EnsureFile failed: %v", err)
		}
	}
	files, err := store.ActiveFilesForUpdate(ctx, update.ID)
	if err != nil {
		t.Fatalf("ActiveFilesForUpdate failed: %v", err)
	}
	for _, file := range files {
		if _, err := store.EnsureHostFile(ctx, host.ID, file.ID); err != nil {
			t.Fatalf("EnsureHostFile failed: %v", err)
		}
	}
	if _, err := store.SetFileResult(ctx, host.ID, files[1].ID, false, true); err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}

	failed, err := store.FailedFilesForUpdate(ctx, host.ID, update.ID)
	if err != nil {
		t.Fatalf("FailedFilesForUpdate failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed files: %#v", failed)
	}
}

func TestRecordAndLastRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, "build-07")

	none, err := store.LastRun(ctx, host.ID)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no runs yet, got %#v", none)
	}

	started := time.Now().UTC().Add(-2 * time.Second)
	first := &catalog.Run{
		ID:           "run-1",
		HostID:       host.ID,
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
		UpdatesAdded: 2,
		FilesAdded:   5,
		PairsSeeded:  7,
	}
	if err := store.RecordRun(ctx, first); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	second := &catalog.Run{
		ID:             "run-2",
		HostID:         host.ID,
		StartedAt:      started.Add(time.Second),
		FinishedAt:     started.Add(2 * time.Second),
		UpdatesRemoved: 1,
	}
	if err := store.RecordRun(ctx, second); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	last, err := store.LastRun(ctx, host.ID)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || last.ID != "run-2" {
		t.Fatalf("expected most recent run, got %#v", last)
	}
	if last.UpdatesRemoved != 1 {
		t.Fatalf("unexpected counters: %#v", last)
	}
}

func TestStatusFromFlagsPrecedence(t *testing.T) {
	cases := []struct {
		installed, failed, empty bool
		want                     catalog.Status
	}{
		{false, false, true, catalog.StatusEmpty},
		{true, true, true, catalog.StatusEmpty},
		{false, true, false, catalog.StatusFailed},
		{true, true, false, catalog.StatusFailed},
		{true, false, false, catalog.StatusInstalled},
		{false, false, false, catalog.StatusPending},
	}
	for _, tc := range cases {
		got := catalog.StatusFromFlags(tc.installed, tc.failed, tc.empty)
		if got != tc.want {
			t.Fatalf("StatusFromFlags(%v,%v,%v) = %s, want %s", tc.installed, tc.failed, tc.empty, got, tc.want)
		}
	}
}
