package installer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"patchtrack/internal/config"
	"patchtrack/internal/faults"
	"patchtrack/internal/logging"
)

// Request describes one file handed to a Runner.
type Request struct {
	Host   string
	Update string
	File   string
	Path   string
}

// Report is the outcome a Runner observed. Exactly one of Installed and
// Failed is set on a normal run.
type Report struct {
	Installed bool
	Failed    bool
	Detail    string
}

// Runner performs the install action for one file.
type Runner interface {
	Install(ctx context.Context, req Request) (Report, error)
}

// HookRunner invokes the configured installer command with the file path
// as its argument. The hook's exit status is the outcome: zero reports
// installed, non-zero reports failed. Request fields are passed in the
// environment for hooks that want context.
type HookRunner struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
}

// NewHookRunner builds a runner from the installer config section. A nil
// logger disables logging.
func NewHookRunner(cfg *config.Config, logger *slog.Logger) *HookRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HookRunner{
		command: cfg.Installer.Command,
		timeout: time.Duration(cfg.Installer.Timeout) * time.Second,
		logger:  logging.NewComponentLogger(logger, "installer"),
	}
}

// Install runs the hook for req. A hook that cannot be started at all is
// an error; a hook that starts and exits non-zero is a failed outcome,
// not an error.
func (h *HookRunner) Install(ctx context.Context, req Request) (Report, error) {
	if h.command == "" {
		return Report{}, faults.Wrap(
			faults.ErrConfig,
			"installer",
			"resolve hook",
			"No installer command is configured",
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, h.command, req.Path)
	cmd.Env = append(os.Environ(),
		"PATCHTRACK_HOST="+req.Host,
		"PATCHTRACK_UPDATE="+req.Update,
		"PATCHTRACK_FILE="+req.File,
		"PATCHTRACK_PATH="+req.Path,
	)
	output, err := cmd.CombinedOutput()
	detail := strings.TrimSpace(string(output))
	if err == nil {
		h.logger.Info("hook reported installed",
			logging.String(logging.FieldUpdate, req.Update),
			logging.String(logging.FieldFile, req.File),
		)
		return Report{Installed: true, Detail: detail}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if runCtx.Err() == context.DeadlineExceeded {
			detail = "hook timed out"
		} else if detail == "" {
			detail = exitErr.Error()
		}
		h.logger.Warn("hook reported failed",
			logging.String(logging.FieldUpdate, req.Update),
			logging.String(logging.FieldFile, req.File),
			logging.String("detail", detail),
		)
		return Report{Failed: true, Detail: detail}, nil
	}
	return Report{}, faults.Wrap(
		faults.ErrConfig,
		"installer",
		"run hook",
		"Installer hook could not be started",
		err,
	)
}
