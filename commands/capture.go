package commands

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mobile-next/trackcli/tracker"
	"github.com/mobile-next/trackcli/types"
)

// runHistorySize bounds how many completed runs RunsCommand can report.
const runHistorySize = 32

// Tracker owns the capture session behind the command surface. The CLI, the
// interactive console and the RPC server all dispatch through the same
// Tracker, so one process has exactly one session and no package-level
// capture state.
type Tracker struct {
	session *tracker.Session
	runs    *lru.Cache[string, types.RunSummary]
}

// NewTracker builds a Tracker from file-backed settings. The source factory
// is injected so callers without OS hook access (tests, unsupported
// platforms) can still drive the full command surface.
func NewTracker(cfg tracker.Config, sources tracker.SourceFactory) *Tracker {
	runs, _ := lru.New[string, types.RunSummary](runHistorySize)
	return &Tracker{
		session: tracker.NewSession(tracker.SessionOptions{
			Output:        cfg.Capture.Output,
			PollInterval:  time.Duration(cfg.Capture.PollIntervalMs) * time.Millisecond,
			FlushInterval: time.Duration(cfg.Capture.FlushIntervalSec) * time.Second,
			Keys:          cfg.Capture.Keys,
			Sources:       sources,
		}),
		runs: runs,
	}
}

// StartCommand starts capture. A positive intervalMs overrides the sampler
// period for this and later runs. Starting while already running changes
// nothing and reports the running state.
func (t *Tracker) StartCommand(intervalMs int) *CommandResponse {
	result, err := t.session.Start(intervalMs)
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(result)
}

// StopCommand stops capture and archives the finished run in the history.
// Stopping an idle session changes nothing and reports the idle state.
func (t *Tracker) StopCommand() *CommandResponse {
	result := t.session.Stop()
	if result.Changed {
		if run := t.session.LastRun(); run != nil {
			t.runs.Add(run.ID, *run)
		}
	}
	return NewSuccessResponse(result)
}

// StatusCommand reports a snapshot of the session.
func (t *Tracker) StatusCommand() *CommandResponse {
	return NewSuccessResponse(t.session.Status())
}

// SetKeysCommand replaces the tracked key set. Unrecognized identifiers are
// dropped, so the accepted count may be smaller than the input.
func (t *Tracker) SetKeysCommand(tokens []string) *CommandResponse {
	return NewSuccessResponse(t.session.SetKeys(tokens))
}

// RunsCommand lists completed capture runs, most recent first.
func (t *Tracker) RunsCommand() *CommandResponse {
	values := t.runs.Values()
	runs := make([]types.RunSummary, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		runs = append(runs, values[i])
	}
	return NewSuccessResponse(runs)
}
