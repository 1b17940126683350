package preflight

import (
	"patchtrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for the given config: tree and data
// directory access, store health, and the installer hook when one is
// configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	return []Result{
		CheckDirectoryAccess("Base directory", cfg.Paths.BaseDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckStore(cfg),
		CheckInstallerHook(cfg),
	}
}

// AllPassed reports whether every check passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
