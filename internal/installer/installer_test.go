package installer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"patchtrack/internal/catalog"
	"patchtrack/internal/faults"
	"patchtrack/internal/installer"
	"patchtrack/internal/testsupport"
)

// writeHook puts an executable shell script under the test's temp dir and
// returns its absolute path.
func writeHook(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write hook failed: %v", err)
	}
	return path
}

func TestHookRunnerReportsInstalled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Installer.Command = writeHook(t, "#!/bin/sh\necho \"$PATCHTRACK_UPDATE/$PATCHTRACK_FILE\"\nexit 0\n")
	runner := installer.NewHookRunner(cfg, nil)

	report, err := runner.Install(context.Background(), installer.Request{
		Host:   "testhost",
		Update: "2024-01",
		File:   "a.sh",
		Path:   "/tmp/a.sh",
	})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !report.Installed || report.Failed {
		t.Fatalf("expected installed outcome, got %#v", report)
	}
	if report.Detail != "2024-01/a.sh" {
		t.Fatalf("expected env passed to hook, got %q", report.Detail)
	}
}

func TestHookRunnerReportsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Installer.Command = writeHook(t, "#!/bin/sh\necho \"cannot apply\" >&2\nexit 3\n")
	runner := installer.NewHookRunner(cfg, nil)

	report, err := runner.Install(context.Background(), installer.Request{File: "a.sh"})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !report.Failed || report.Installed {
		t.Fatalf("expected failed outcome, got %#v", report)
	}
	if report.Detail != "cannot apply" {
		t.Fatalf("expected stderr captured, got %q", report.Detail)
	}
}

func TestHookRunnerMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Installer.Command = filepath.Join(t.TempDir(), "no-such-hook")
	runner := installer.NewHookRunner(cfg, nil)

	_, err := runner.Install(context.Background(), installer.Request{File: "a.sh"})
	if err == nil {
		t.Fatal("expected error for missing hook binary")
	}
	if !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config classification, got %v", err)
	}
}

func TestHookRunnerUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := installer.NewHookRunner(cfg, nil)

	_, err := runner.Install(context.Background(), installer.Request{File: "a.sh"})
	if err == nil {
		t.Fatal("expected error without a configured command")
	}
	if !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config classification, got %v", err)
	}
}

type fakeRunner struct {
	reports  map[string]installer.Report
	requests []installer.Request
	err      error
}

func (f *fakeRunner) Install(_ context.Context, req installer.Request) (installer.Report, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return installer.Report{}, f.err
	}
	if report, ok := f.reports[req.File]; ok {
		return report, nil
	}
	return installer.Report{Installed: true}, nil
}

// seedCatalog inserts one host, one update with the named files, and pair
// rows for all of them.
func seedCatalog(t *testing.T, store *catalog.Store, hostName, updateName string, fileNames ...string) (*catalog.Host, *catalog.Update, []*catalog.File) {
	t.Helper()
	ctx := context.Background()
	host := testsupport.MustEnsureHost(t, store, hostName)
	if _, err := store.EnsureUpdate(ctx, updateName); err != nil {
		t.Fatalf("EnsureUpdate failed: %v", err)
	}
	update, err := store.ActiveUpdateByName(ctx, updateName)
	if err != nil {
		t.Fatalf("ActiveUpdateByName failed: %v", err)
	}
	if _, err := store.EnsureHostUpdate(ctx, host.ID, update.ID); err != nil {
		t.Fatalf("EnsureHostUpdate failed: %v", err)
	}
	for _, name := range fileNames {
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
	return host, update, files
}

func TestApplyInstallAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_, update, _ := seedCatalog(t, store, "testhost", "2024-01", "a", "b")

	runner := &fakeRunner{}
	coord := installer.NewCoordinator(cfg, store, runner, nil)

	outcome, err := coord.Apply(context.Background(), "testhost", installer.InstallAll("2024-01"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.Attempted != 2 || outcome.Installed != 2 || outcome.Failed != 0 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Status != catalog.StatusInstalled {
		t.Fatalf("expected installed rollup, got %s", outcome.Status)
	}
	if len(runner.requests) != 2 {
		t.Fatalf("expected 2 hook runs, got %#v", runner.requests)
	}
	wantPath := filepath.Join(cfg.Paths.BaseDir, "2024-01", "a.sh")
	if runner.requests[0].Path != wantPath {
		t.Fatalf("expected path %q, got %q", wantPath, runner.requests[0].Path)
	}
	if runner.requests[0].Update != update.Name {
		t.Fatalf("unexpected request: %#v", runner.requests[0])
	}
}

func TestApplyRecordsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	host, update, _ := seedCatalog(t, store, "testhost", "2024-01", "a", "b")

	runner := &fakeRunner{reports: map[string]installer.Report{
		"b.sh": {Failed: true, Detail: "hook exited 3"},
	}}
	coord := installer.NewCoordinator(cfg, store, runner, nil)

	outcome, err := coord.Apply(context.Background(), "testhost", installer.InstallAll("2024-01"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.Installed != 1 || outcome.Failed != 1 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Status != catalog.StatusFailed {
		t.Fatalf("expected failed rollup, got %s", outcome.Status)
	}

	rows, err := store.FilesForUpdate(context.Background(), host.ID, update.ID)
	if err != nil {
		t.Fatalf("FilesForUpdate failed: %v", err)
	}
	if !rows[0].Installed || rows[0].Failed {
		t.Fatalf("expected a.sh installed, got %#v", rows[0])
	}
	if rows[1].Installed || !rows[1].Failed {
		t.Fatalf("expected b.sh failed, got %#v", rows[1])
	}
}

func TestApplyRetryFailedRunsOnlyFailedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	host, _, files := seedCatalog(t, store, "testhost", "2024-01", "a", "b")

	ctx := context.Background()
	if _, err := store.SetFileResult(ctx, host.ID, files[0].ID, true, false); err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}
	if _, err := store.SetFileResult(ctx, host.ID, files[1].ID, false, true); err != nil {
		t.Fatalf("SetFileResult failed: %v", err)
	}

	runner := &fakeRunner{}
	coord := installer.NewCoordinator(cfg, store, runner, nil)

	outcome, err := coord.Apply(ctx, "testhost", installer.RetryFailed("2024-01"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.Attempted != 1 {
		t.Fatalf("expected only the failed file retried, got %#v", outcome)
	}
	if len(runner.requests) != 1 || runner.requests[0].File != "b.sh" {
		t.Fatalf("expected b.sh retried, got %#v", runner.requests)
	}
	if outcome.Status != catalog.StatusInstalled {
		t.Fatalf("expected installed after successful retry, got %s", outcome.Status)
	}
}

func TestApplyRetryWithNothingFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedCatalog(t, store, "testhost", "2024-01", "a")

	runner := &fakeRunner{}
	coord := installer.NewCoordinator(cfg, store, runner, nil)

	outcome, err := coord.Apply(context.Background(), "testhost", installer.RetryFailed("2024-01"))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.Attempted != 0 || len(runner.requests) != 0 {
		t.Fatalf("expected no hook runs, got %#v", outcome)
	}
	if outcome.Status != catalog.StatusPending {
		t.Fatalf("expected pending rollup, got %s", outcome.Status)
	}
}

func TestApplyInstallFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_, _, files := seedCatalog(t, store, "testhost", "2024-01", "a", "b")

	runner := &fakeRunner{}
	coord := installer.NewCoordinator(cfg, store, runner, nil)

	outcome, err := coord.Apply(context.Background(), "testhost", installer.InstallFile("2024-01", files[1].ID))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.Attempted != 1 || len(runner.requests) != 1 {
		t.Fatalf("expected one hook run, got %#v", outcome)
	}
	if runner.requests[0].File != "b.sh" {
		t.Fatalf("expected b.sh, got %#v", runner.requests[0])
	}
	if outcome.Status != catalog.StatusPending {
		t.Fatalf("expected pending with a.sh outstanding, got %s", outcome.Status)
	}
}

func TestApplyRejectsForeignFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedCatalog(t, store, "testhost", "2024-01", "a")
	_, _, otherFiles := seedCatalog(t, store, "testhost", "2024-02", "z")

	coord := installer.NewCoordinator(cfg, store, &fakeRunner{}, nil)

	_, err := coord.Apply(context.Background(), "testhost", installer.InstallFile("2024-01", otherFiles[0].ID))
	if err == nil {
		t.Fatal("expected error for file of another update")
	}
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestApplyUnknownTargets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedCatalog(t, store, "testhost", "2024-01", "a")

	coord := installer.NewCoordinator(cfg, store, &fakeRunner{}, nil)
	ctx := context.Background()

	if _, err := coord.Apply(ctx, "ghost", installer.InstallAll("2024-01")); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found for unknown host, got %v", err)
	}
	if _, err := coord.Apply(ctx, "testhost", installer.InstallAll("2024-99")); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found for unknown update, got %v", err)
	}
}

func TestApplyPropagatesRunnerErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedCatalog(t, store, "testhost", "2024-01", "a")

	wantErr := errors.New("hook exploded")
	coord := installer.NewCoordinator(cfg, store, &fakeRunner{err: wantErr}, nil)

	_, err := coord.Apply(context.Background(), "testhost", installer.InstallAll("2024-01"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected runner error propagated, got %v", err)
	}
}

func TestRecordResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	host, update, files := seedCatalog(t, store, "testhost", "2024-01", "a")

	coord := installer.NewCoordinator(cfg, store, &fakeRunner{}, nil)
	ctx := context.Background()

	owner, status, err := coord.RecordResult(ctx, "testhost", files[0].ID, true, false)
	if err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	if status != catalog.StatusInstalled {
		t.Fatalf("expected installed rollup, got %s", status)
	}
	if owner == nil || owner.ID != update.ID {
		t.Fatalf("expected owning update %d, got %#v", update.ID, owner)
	}

	rows, err := store.FilesForUpdate(ctx, host.ID, update.ID)
	if err != nil {
		t.Fatalf("FilesForUpdate failed: %v", err)
	}
	if !rows[0].Installed {
		t.Fatalf("expected outcome recorded, got %#v", rows[0])
	}

	if _, _, err := coord.RecordResult(ctx, "testhost", 9999, true, false); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found for unknown file, got %v", err)
	}
}

func TestRecordResultWithoutPairRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_, _, files := seedCatalog(t, store, "testhost", "2024-01", "a")
	testsupport.MustEnsureHost(t, store, "other-host")

	coord := installer.NewCoordinator(cfg, store, &fakeRunner{}, nil)

	// other-host never reconciled 2024-01, so it has no tracking row.
	_, _, err := coord.RecordResult(context.Background(), "other-host", files[0].ID, true, false)
	if err == nil {
		t.Fatal("expected error without a pair row")
	}
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}
