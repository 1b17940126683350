// Package installer turns UI-issued install commands into hook
// invocations and records the reported per-file outcomes. The actual
// install mechanics live in the configured hook; patchtrack only tracks
// what the hook reports back.
package installer

import "fmt"

// Kind selects the install action of a Command.
type Kind int

const (
	// KindInstallAll installs every active file of an update.
	KindInstallAll Kind = iota
	// KindRetryFailed re-runs only the files currently failed for the host.
	KindRetryFailed
	// KindInstallFile installs one file by id.
	KindInstallFile
)

func (k Kind) String() string {
	switch k {
	case KindInstallAll:
		return "install-all"
	case KindRetryFailed:
		return "retry-failed"
	case KindInstallFile:
		return "install-file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one install request against a named update.
type Command struct {
	Kind   Kind
	Update string
	FileID int64
}

// InstallAll requests installation of every active file of update.
func InstallAll(update string) Command {
	return Command{Kind: KindInstallAll, Update: update}
}

// RetryFailed requests a re-run of the update's currently failed files.
func RetryFailed(update string) Command {
	return Command{Kind: KindRetryFailed, Update: update}
}

// InstallFile requests installation of a single file of update.
func InstallFile(update string, fileID int64) Command {
	return Command{Kind: KindInstallFile, Update: update, FileID: fileID}
}
