package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"patchtrack/internal/catalog"
)

var statusTitle = cases.Title(language.Und)

// formatStatusLabel renders a rollup status for tables and status lines.
func formatStatusLabel(status catalog.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return ""
	}
	return statusTitle.String(value)
}

// fileStatusLabel renders file flags the way the rollup reads them: failed
// wins, then installed, otherwise pending.
func fileStatusLabel(row catalog.FileStatus) string {
	switch {
	case row.Failed:
		return formatStatusLabel(catalog.StatusFailed)
	case row.Installed:
		return formatStatusLabel(catalog.StatusInstalled)
	default:
		return formatStatusLabel(catalog.StatusPending)
	}
}

func statusKindForRollup(status catalog.Status) statusKind {
	switch status {
	case catalog.StatusInstalled:
		return statusOK
	case catalog.StatusFailed:
		return statusError
	case catalog.StatusEmpty:
		return statusWarn
	default:
		return statusInfo
	}
}

// updateRow pairs a projection row with its file tally for display.
type updateRow struct {
	catalog.UpdateStatus
	Tally catalog.Tally
}

func buildUpdateRows(rows []updateRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			row.Name,
			formatStatusLabel(row.Status),
			fmt.Sprintf("%d", row.Tally.Total),
			fmt.Sprintf("%d", row.Tally.Installed),
			fmt.Sprintf("%d", row.Tally.Failed),
		})
	}
	return out
}

func buildFileRows(rows []catalog.FileStatus) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			fmt.Sprintf("%d", row.ID),
			row.DisplayName,
			fileStatusLabel(row),
		})
	}
	return out
}

// hostRow summarizes one host's rollup counts for the hosts table.
type hostRow struct {
	Name    string
	AddedAt time.Time
	Total   int
	Counts  map[catalog.Status]int
}

func buildHostRows(rows []hostRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			row.Name,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Counts[catalog.StatusInstalled]),
			fmt.Sprintf("%d", row.Counts[catalog.StatusPending]),
			fmt.Sprintf("%d", row.Counts[catalog.StatusFailed]),
			fmt.Sprintf("%d", row.Counts[catalog.StatusEmpty]),
			formatDisplayTime(row.AddedAt),
		})
	}
	return out
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func shortRunID(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 8 {
		return value[:8]
	}
	if value == "" {
		return "-"
	}
	return value
}
