package types

import "time"

// CaptureState is the lifecycle state of the capture pipeline.
type CaptureState string

const (
	CaptureStateIdle    CaptureState = "idle"
	CaptureStateRunning CaptureState = "running"
)

// StartResult reports the outcome of a start request. Changed is false when
// capture was already running and the request was a no-op.
type StartResult struct {
	Changed        bool         `json:"changed"`
	State          CaptureState `json:"state"`
	PollIntervalMs int          `json:"poll_interval_ms"`
	RunID          string       `json:"run_id,omitempty"`
	Output         string       `json:"output,omitempty"`
	Sources        []string     `json:"sources,omitempty"`
	Message        string       `json:"message"`
}

// StopResult reports the outcome of a stop request. Changed is false when
// capture was already idle.
type StopResult struct {
	Changed        bool         `json:"changed"`
	State          CaptureState `json:"state"`
	RunID          string       `json:"run_id,omitempty"`
	EventsWritten  uint64       `json:"events_written"`
	BatchesDropped uint64       `json:"batches_dropped"`
	Message        string       `json:"message"`
}

// CaptureStatus is a point-in-time snapshot of the pipeline.
type CaptureStatus struct {
	State          CaptureState `json:"state"`
	PollIntervalMs int          `json:"poll_interval_ms"`
	Output         string       `json:"output"`
	RunID          string       `json:"run_id,omitempty"`
	QueueDepth     int          `json:"queue_depth"`
	EventsWritten  uint64       `json:"events_written"`
	BatchesDropped uint64       `json:"batches_dropped"`
	TrackedKeys    []string     `json:"tracked_keys"`
	Sources        []string     `json:"sources,omitempty"`
}

// SetKeysResult reports how many key identifiers were accepted into the
// tracked set. Unrecognized identifiers are dropped silently.
type SetKeysResult struct {
	Accepted int      `json:"accepted"`
	Keys     []string `json:"keys"`
	Message  string   `json:"message"`
}

// RunSummary describes one completed capture run.
type RunSummary struct {
	ID             string    `json:"id"`
	Output         string    `json:"output"`
	StartedAt      time.Time `json:"started_at"`
	StoppedAt      time.Time `json:"stopped_at"`
	PollIntervalMs int       `json:"poll_interval_ms"`
	EventsWritten  uint64    `json:"events_written"`
	BatchesDropped uint64    `json:"batches_dropped"`
}
