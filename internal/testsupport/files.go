package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SeedUpdate creates one update directory under the base path and fills it
// with the named files, each holding a short marker payload.
func SeedUpdate(t testing.TB, baseDir, updateName string, fileNames ...string) string {
	t.Helper()

	dir := filepath.Join(baseDir, updateName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir update %s: %v", updateName, err)
	}
	for _, name := range fileNames {
		WriteFile(t, filepath.Join(dir, name), "payload for "+name+"\n")
	}
	return dir
}

// WriteFile fills the target path with contents, creating parent directories
// as needed.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// RemovePath deletes a file or directory tree seeded by an earlier helper.
func RemovePath(t testing.TB, path string) {
	t.Helper()

	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
}
