package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
	"patchtrack/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore verifies the catalog database can be opened and carries the
// expected schema.
func CheckStore(cfg *config.Config) Result {
	const name = "Store"

	store, err := catalog.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.DatabasePath(), err)}
	}
	if err := store.Close(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: close: %v)", cfg.DatabasePath(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema ok)", cfg.DatabasePath())}
}

// CheckInstallerHook resolves the configured installer command. Without a
// configured hook, outcomes arrive through set-result and the check
// passes.
func CheckInstallerHook(cfg *config.Config) Result {
	const name = "Installer hook"

	if cfg.Installer.Command == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (outcomes recorded via set-result)"}
	}
	statuses := CheckSystemDeps(cfg)
	status := statuses[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Command}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the status command and the startup path use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Installer hook",
			Command:     cfg.Installer.Command,
			Description: "Applies update files and reports the outcome",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
