package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObservePassEncodesWithoutPanic(t *testing.T) {
	m := New()
	m.ObservePass(PassStats{
		UpdatesSeen:      3,
		UpdatesAdded:     1,
		FilesAdded:       4,
		PairsSeeded:      5,
		UpdatesInstalled: 2,
		UpdatesPending:   1,
		Duration:         120 * time.Millisecond,
	})
	m.ObservePassFailure("io")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}

	text := string(body)
	for _, want := range []string{
		"patchtrack_reconcile_passes_total 1",
		`patchtrack_reconcile_pass_failures_total{kind="io"} 1`,
		`patchtrack_catalog_rows_total{action="added",kind="file"} 4`,
		`patchtrack_updates_by_status{status="installed"} 2`,
		`patchtrack_updates_by_status{status="pending"} 1`,
		`patchtrack_updates_by_status{status="failed"} 0`,
		"patchtrack_active_updates 3",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("scrape missing %q in:\n%s", want, text)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObservePass(PassStats{})
	m.ObservePassFailure("io")
}
