//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared kpiscore binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the kpiscore binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "kpiscore-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "kpiscore")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build kpiscore: %v\n%s", err, out))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// commonArgs pins the period range so results do not depend on today's date.
var commonArgs = []string{"--epoch", "2025-01-01", "--as-of", "2025-07-15", "--color", "no"}

// trainingDue and trainingOnTime give, for January to June 2025, how many trainings
// were due and how many of them were completed by their due date.
var (
	trainingDue    = []int{3, 4, 5, 6, 7, 8}
	trainingOnTime = []int{1, 2, 3, 4, 5, 7}
)

// writeSources writes audits and training exports to a fresh directory and returns it.
// Every January audit is overdue, so the audit goal check fails.
func writeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var training strings.Builder
	training.WriteString("Due Date,Completed Date,User\n")
	for i, due := range trainingDue {
		month := i + 1
		for k := range due {
			completed := fmt.Sprintf("2025-%02d-20", month)
			if k < trainingOnTime[i] {
				completed = fmt.Sprintf("2025-%02d-05", month)
			}
			_, _ = fmt.Fprintf(&training, "2025-%02d-10,%s,user%d\n", month, completed, k)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "training.csv"), []byte(training.String()), 0o644))

	audits := "Planned Start Date,Start Date,End Date,Internal/External\n" +
		"2025-01-06,2025-01-06,2025-02-03,Internal\n" +
		"2025-01-20,,,External\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audits.csv"), []byte(audits), 0o644))

	return dir
}

// runCommand runs kpiscore with args against the sources in dir and returns its stdout.
func runCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	args = append(args, commonArgs...)
	args = append(args, "--source-dir", dir)

	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("Command failed: %s\nStderr: %s", cmd.String(), stderr.String())
	}
	return stdout.String(), err
}
