package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"patchtrack/internal/config"
	"patchtrack/internal/installer"
	"patchtrack/internal/logging"
)

func parsePositiveID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

// commandLogger builds the logger mutating commands run under. Output goes
// to stderr and the log file, never stdout, so table output stays parseable.
func commandLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func describeOutcome(outcome *installer.Outcome) string {
	if outcome.Attempted == 0 {
		return fmt.Sprintf("No files attempted for update %s (status %s)",
			outcome.Update, formatStatusLabel(outcome.Status))
	}
	return fmt.Sprintf("Update %s: %d attempted, %d installed, %d failed (status %s)",
		outcome.Update,
		outcome.Attempted,
		outcome.Installed,
		outcome.Failed,
		formatStatusLabel(outcome.Status),
	)
}
