package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobile-next/trackcli/commands"
	"github.com/mobile-next/trackcli/tracker"
)

// newConsoleTracker points the package-level tracker at a throwaway session
// with no input sources, the way initConfig does for real runs.
func newConsoleTracker(t *testing.T) {
	t.Helper()
	cfg = tracker.DefaultConfig()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "log.csv")
	cfg.Capture.FlushIntervalSec = 3600
	captureTracker = commands.NewTracker(cfg, nil)
}

func TestConsoleLifecycle(t *testing.T) {
	newConsoleTracker(t)

	in := strings.NewReader("start 10\nsetkeys Q W\nstop\nexit\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(in, &out))

	assert.Contains(t, out.String(), "Logging started (poll interval = 10 ms).")
	assert.Contains(t, out.String(), "Tracked keys updated. Count = 2")
	assert.Contains(t, out.String(), "Logging stopped.")
}

func TestConsoleIdempotentCommands(t *testing.T) {
	newConsoleTracker(t)

	in := strings.NewReader("stop\nstart\nstart 50\nstop\nexit\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(in, &out))

	assert.Contains(t, out.String(), "Logging is not currently running.")
	assert.Contains(t, out.String(), "Logging started (poll interval = 20 ms).")
	assert.Contains(t, out.String(), "Logging is already running.")
	assert.Contains(t, out.String(), "Logging stopped.")
}

func TestConsoleMalformedInput(t *testing.T) {
	newConsoleTracker(t)

	in := strings.NewReader("start abc\nstart -5\nsetkeys\nbogus\nexit\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(in, &out))

	assert.Contains(t, out.String(), "Invalid interval: abc")
	assert.Contains(t, out.String(), "Invalid interval: -5")
	assert.Contains(t, out.String(), "Usage: setkeys KEY [KEY ...]")
	assert.Contains(t, out.String(), "Unknown command: bogus")

	// none of that touched the capture state
	assert.NotContains(t, out.String(), "Logging started")
	assert.NotContains(t, out.String(), "Logging stopped.")
}

func TestConsoleStatus(t *testing.T) {
	newConsoleTracker(t)

	in := strings.NewReader("status\nexit\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(in, &out))

	assert.Contains(t, out.String(), `"state": "idle"`)
	assert.Contains(t, out.String(), `"poll_interval_ms": 20`)
}

func TestConsoleEOFStopsCapture(t *testing.T) {
	newConsoleTracker(t)

	in := strings.NewReader("start\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(in, &out))

	assert.Contains(t, out.String(), "Logging started (poll interval = 20 ms).")
	assert.Contains(t, out.String(), "Logging stopped.")
}
