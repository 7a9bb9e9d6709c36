package tracker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/trackcli/types"
	"github.com/mobile-next/trackcli/utils"
)

// DefaultPollInterval is the position sampler period until a start request
// overrides it.
const DefaultPollInterval = 20 * time.Millisecond

// SessionOptions configure a capture session.
type SessionOptions struct {
	// Output is the sink file path. Empty gets a timestamped filename.
	Output string

	// PollInterval is the initial position sampler period; non-positive
	// falls back to DefaultPollInterval.
	PollInterval time.Duration

	// FlushInterval is the writer flush period; non-positive falls back to
	// DefaultFlushInterval.
	FlushInterval time.Duration

	// Keys are the initially tracked key identifiers; nil keeps the default
	// set.
	Keys []string

	// Sources builds the platform input sources for each run. Nil means the
	// session runs without producers, which is only useful in tests.
	Sources SourceFactory
}

// Session is the single lifecycle authority for the capture pipeline. It
// owns the writer and the input sources and enforces the start/stop
// ordering: the writer is running before any producer may enqueue, and all
// producers are torn down before the writer's final flush. Sessions are
// self-contained, so independent sessions can coexist in one process.
type Session struct {
	mu      sync.Mutex
	running atomic.Bool

	interval time.Duration
	writer   *CSVWriter
	factory  SourceFactory
	keys     atomic.Pointer[KeySet]

	sources   []Source
	runID     string
	startedAt time.Time
	lastRun   *types.RunSummary
}

// NewSession creates an idle session.
func NewSession(opts SessionOptions) *Session {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	s := &Session{
		interval: interval,
		writer:   NewCSVWriter(opts.Output, opts.FlushInterval),
		factory:  opts.Sources,
	}
	if opts.Keys != nil {
		s.keys.Store(ParseKeys(opts.Keys))
	} else {
		s.keys.Store(DefaultTrackedKeys())
	}
	return s
}

// Start brings the pipeline up: writer first, then the input sources. A
// positive intervalMs replaces the sampler period; zero or negative keeps
// the previous one. Starting a running session is a no-op that reports the
// current state. A source that fails to install is logged and skipped;
// capture proceeds degraded with whichever sources succeeded. A writer
// failure aborts the start and the session stays idle.
func (s *Session) Start(intervalMs int) (types.StartResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return types.StartResult{
			Changed:        false,
			State:          types.CaptureStateRunning,
			PollIntervalMs: s.intervalMs(),
			RunID:          s.runID,
			Output:         s.writer.Path(),
			Message:        "Logging is already running.",
		}, nil
	}

	if intervalMs > 0 {
		s.interval = time.Duration(intervalMs) * time.Millisecond
	}

	s.running.Store(true)

	if err := s.writer.Start(); err != nil {
		s.running.Store(false)
		return types.StartResult{State: types.CaptureStateIdle}, err
	}

	s.runID = uuid.NewString()
	s.startedAt = time.Now()

	var installed []string
	if s.factory != nil {
		cfg := SourceConfig{
			PollInterval: s.interval,
			IsTracked:    s.TrackedKey,
		}
		for _, src := range s.factory(cfg) {
			if err := src.Start(s.emit); err != nil {
				utils.Error("installing %s: %v", src.Name(), err)
				continue
			}
			s.sources = append(s.sources, src)
			installed = append(installed, src.Name())
		}
		if len(installed) == 0 {
			utils.Warn("no input source installed, capture is running but records nothing")
		}
	}

	msg := fmt.Sprintf("Logging started (poll interval = %d ms).", s.intervalMs())
	utils.Info("%s", msg)
	return types.StartResult{
		Changed:        true,
		State:          types.CaptureStateRunning,
		PollIntervalMs: s.intervalMs(),
		RunID:          s.runID,
		Output:         s.writer.Path(),
		Sources:        installed,
		Message:        msg,
	}, nil
}

// Stop tears the pipeline down in the reverse order of Start: mark idle so
// producers cease, remove the sources, then stop the writer, which flushes
// everything still queued. Stop returns only after that final flush, so no
// event enqueued before the call is lost. Stopping an idle session is a
// no-op that reports the current state.
func (s *Session) Stop() types.StopResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return types.StopResult{
			Changed: false,
			State:   types.CaptureStateIdle,
			Message: "Logging is not currently running.",
		}
	}

	s.running.Store(false)

	for _, src := range s.sources {
		src.Stop()
	}
	s.sources = nil

	s.writer.Stop()

	stats := s.writer.Stats()
	s.lastRun = &types.RunSummary{
		ID:             s.runID,
		Output:         s.writer.Path(),
		StartedAt:      s.startedAt,
		StoppedAt:      time.Now(),
		PollIntervalMs: s.intervalMs(),
		EventsWritten:  stats.EventsWritten,
		BatchesDropped: stats.BatchesDropped,
	}
	runID := s.runID
	s.runID = ""

	utils.Info("Logging stopped.")
	return types.StopResult{
		Changed:        true,
		State:          types.CaptureStateIdle,
		RunID:          runID,
		EventsWritten:  stats.EventsWritten,
		BatchesDropped: stats.BatchesDropped,
		Message:        "Logging stopped.",
	}
}

// SetKeys replaces the tracked key set from key identifier strings.
// Unrecognized identifiers are dropped silently. The swap is atomic: the key
// hook observes either the old set or the new one in full.
func (s *Session) SetKeys(tokens []string) types.SetKeysResult {
	set := ParseKeys(tokens)
	s.keys.Store(set)
	return types.SetKeysResult{
		Accepted: set.Len(),
		Keys:     set.Names(),
		Message:  fmt.Sprintf("Tracked keys updated. Count = %d", set.Len()),
	}
}

// TrackedKey reports whether code is currently tracked. Called from the key
// hook callback.
func (s *Session) TrackedKey(code uint32) bool {
	return s.keys.Load().Contains(code)
}

// Status returns a snapshot of the session.
func (s *Session) Status() types.CaptureStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := types.CaptureStateIdle
	if s.running.Load() {
		state = types.CaptureStateRunning
	}
	stats := s.writer.Stats()
	status := types.CaptureStatus{
		State:          state,
		PollIntervalMs: s.intervalMs(),
		Output:         s.writer.Path(),
		RunID:          s.runID,
		QueueDepth:     s.writer.QueueDepth(),
		EventsWritten:  stats.EventsWritten,
		BatchesDropped: stats.BatchesDropped,
		TrackedKeys:    s.keys.Load().Names(),
	}
	for _, src := range s.sources {
		status.Sources = append(status.Sources, src.Name())
	}
	return status
}

// LastRun returns the summary of the most recently completed run, or nil
// when no run has completed yet.
func (s *Session) LastRun() *types.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// emit is the funnel every source delivers into. It does the minimum,
// because hook callbacks run on OS event threads: check we are still
// running, enqueue, optionally echo.
func (s *Session) emit(e Event) {
	if !s.running.Load() {
		return
	}
	s.writer.LogEvent(e)
	if e.Kind != MousePos {
		echoEvent(e)
	}
}

// echoEvent mirrors click and key events to the verbose log. Position
// samples are too chatty to echo.
func echoEvent(e Event) {
	switch e.Kind {
	case KeyDown:
		utils.Verbose("Key Down: %s", KeyName(e.KeyCode))
	case KeyUp:
		utils.Verbose("Key Up: %s", KeyName(e.KeyCode))
	case MouseLeftDown:
		utils.Verbose("Mouse Left Down at (%d, %d)", e.X, e.Y)
	case MouseLeftUp:
		utils.Verbose("Mouse Left Up at (%d, %d)", e.X, e.Y)
	case MouseRightDown:
		utils.Verbose("Mouse Right Down at (%d, %d)", e.X, e.Y)
	case MouseRightUp:
		utils.Verbose("Mouse Right Up at (%d, %d)", e.X, e.Y)
	}
}

func (s *Session) intervalMs() int {
	return int(s.interval / time.Millisecond)
}
