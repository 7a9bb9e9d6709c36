package tracker

import "time"

// Source is one producer of input events: a pointer hook, a key hook or the
// position sampler. Sources construct events from whatever the OS hands them
// and pass each one to emit; they never touch storage. Start must not block
// beyond installation, and after Stop returns the source must not call emit
// again.
type Source interface {
	Name() string
	Start(emit func(Event)) error
	Stop()
}

// SourceConfig carries the per-run settings a platform backend needs when
// building its sources.
type SourceConfig struct {
	// PollInterval is the position sampler period.
	PollInterval time.Duration

	// IsTracked reports whether a key code is in the tracked set. The key
	// hook filters with it before constructing an event.
	IsTracked func(code uint32) bool
}

// SourceFactory builds the set of input sources for one capture run. The
// session calls it on every start so sources pick up the current poll
// interval, and tests substitute factories producing fakes.
type SourceFactory func(cfg SourceConfig) []Source
