package hooks

import (
	"time"

	"github.com/mobile-next/trackcli/tracker"
)

// CursorFunc reads the current pointer position. ok is false when the
// position cannot be read, in which case no sample is emitted for that tick.
type CursorFunc func() (x, y int32, ok bool)

// ClockFunc returns monotonic milliseconds since system start.
type ClockFunc func() uint64

// PositionSampler emits one MOUSE_POS event per poll interval with the
// current pointer position. The platform backends supply the cursor and
// clock functions; tests inject their own.
type PositionSampler struct {
	interval time.Duration
	cursor   CursorFunc
	clock    ClockFunc
	done     chan struct{}
	exited   chan struct{}
}

// NewPositionSampler creates a sampler ticking every interval. A
// non-positive interval falls back to the default poll interval.
func NewPositionSampler(interval time.Duration, cursor CursorFunc, clock ClockFunc) *PositionSampler {
	if interval <= 0 {
		interval = tracker.DefaultPollInterval
	}
	return &PositionSampler{
		interval: interval,
		cursor:   cursor,
		clock:    clock,
	}
}

func (p *PositionSampler) Name() string {
	return "position-sampler"
}

// Start launches the sampling goroutine.
func (p *PositionSampler) Start(emit func(tracker.Event)) error {
	p.done = make(chan struct{})
	p.exited = make(chan struct{})
	go p.run(emit)
	return nil
}

// Stop terminates the sampling goroutine and waits for it to exit. No emit
// happens after Stop returns.
func (p *PositionSampler) Stop() {
	close(p.done)
	<-p.exited
}

func (p *PositionSampler) run(emit func(tracker.Event)) {
	defer close(p.exited)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if x, y, ok := p.cursor(); ok {
				emit(tracker.Event{
					Kind:        tracker.MousePos,
					TimestampMs: p.clock(),
					X:           x,
					Y:           y,
				})
			}
		case <-p.done:
			return
		}
	}
}
