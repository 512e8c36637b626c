package testutils

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// BuildSimulator compiles a fake simulator from tests/fixtures/simulator/<name>
// into a temp binary and returns its path.
func BuildSimulator(t *testing.T, name string) string {
	t.Helper()

	root := ProjectRoot(t)
	sourcePath := filepath.Join(root, "tests", "fixtures", "simulator", name)

	exeName := name
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	destPath := filepath.Join(t.TempDir(), exeName)

	cmd := exec.Command("go", "build", "-o", destPath, sourcePath)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "Failed to build fixture %s: %s", name, string(out))

	return destPath
}

// ProjectRoot walks up from the working directory to the directory holding go.mod.
func ProjectRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)

	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatal("could not find project root (go.mod)")
		}
		root = parent
	}
}

// WaitForFile blocks until path exists or the timeout elapses.
// Fixtures write marker files once their signal handlers are installed.
func WaitForFile(t *testing.T, path string, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, timeout, 10*time.Millisecond, "file %s never appeared", path)
}
