package tracker

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mobile-next/trackcli/utils"
)

const csvHeader = "timestamp_ms,event_type,x,y,key_code"

// DefaultFlushInterval is how often the writer drains the queue to disk.
const DefaultFlushInterval = 60 * time.Second

// WriterStats counts what the writer has done since its last Start.
type WriterStats struct {
	EventsWritten  uint64
	BatchesDropped uint64
}

// CSVWriter owns the sink file and the flush goroutine. Events go through
// LogEvent into the queue; the flush goroutine drains them to disk every
// flush interval, and Stop performs one final synchronous flush, which is
// the no-loss guarantee: every event enqueued before Stop is on disk when
// Stop returns.
//
// The file handle is opened per flush and owned exclusively by the writer.
// If the sink cannot be opened for a cycle, that batch is dropped and
// counted; it is not re-queued.
type CSVWriter struct {
	path          string
	flushInterval time.Duration
	queue         EventQueue

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	eventsWritten  atomic.Uint64
	batchesDropped atomic.Uint64
}

// NewCSVWriter creates a writer for the given sink path. An empty path gets
// a timestamped filename so separate runs do not clobber each other. A
// non-positive flushInterval falls back to DefaultFlushInterval.
func NewCSVWriter(path string, flushInterval time.Duration) *CSVWriter {
	if path == "" {
		path = fmt.Sprintf("input_log_%s.csv", time.Now().Format("20060102_150405"))
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &CSVWriter{
		path:          path,
		flushInterval: flushInterval,
	}
}

// Path returns the sink file path.
func (w *CSVWriter) Path() string {
	return w.path
}

// Start truncates the sink, writes the header row and launches the flush
// goroutine. Calling Start while running is a no-op. The writer must be
// started before any producer is installed so no event lands in a pipeline
// with nowhere to go.
func (w *CSVWriter) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("creating log file %s: %w", w.path, err)
	}
	_, werr := fmt.Fprintln(f, csvHeader)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("writing log header to %s: %w", w.path, werr)
	}

	w.eventsWritten.Store(0)
	w.batchesDropped.Store(0)

	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.flushLoop()

	w.running = true
	utils.Verbose("CSV writer started, flushing to %s every %s", w.path, w.flushInterval)
	return nil
}

// Stop terminates the flush goroutine, waits for it to exit and then flushes
// whatever is still queued. Calling Stop while not running is a no-op. There
// is no timeout on the join or the final flush; a hung filesystem hangs Stop.
func (w *CSVWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	w.flush()
	utils.Verbose("CSV writer stopped, %d events written", w.eventsWritten.Load())
}

// LogEvent enqueues one event for the next flush. It never touches the file,
// so it is safe to call from hook callbacks.
func (w *CSVWriter) LogEvent(e Event) {
	w.queue.Push(e)
}

// QueueDepth returns how many events await the next flush.
func (w *CSVWriter) QueueDepth() int {
	return w.queue.Len()
}

// Stats returns the counters for the current run.
func (w *CSVWriter) Stats() WriterStats {
	return WriterStats{
		EventsWritten:  w.eventsWritten.Load(),
		BatchesDropped: w.batchesDropped.Load(),
	}
}

func (w *CSVWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.done:
			return
		}
	}
}

// flush drains the queue and appends the batch to the sink. On open failure
// the batch is dropped for this cycle and the failure is logged; events keep
// queueing for the next cycle.
func (w *CSVWriter) flush() {
	batch := w.queue.DrainAll()
	if len(batch) == 0 {
		return
	}

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		w.batchesDropped.Add(1)
		utils.Error("opening %s for append: %v (dropped %d events)", w.path, err, len(batch))
		return
	}

	bw := bufio.NewWriter(f)
	for _, e := range batch {
		fmt.Fprintf(bw, "%d,%s,%d,%d,%d\n", e.TimestampMs, e.Kind, e.X, e.Y, e.KeyCode)
	}
	if err := bw.Flush(); err != nil {
		utils.Error("writing events to %s: %v", w.path, err)
		f.Close()
		return
	}
	if err := f.Sync(); err != nil {
		utils.Warn("syncing %s: %v", w.path, err)
	}
	if err := f.Close(); err != nil {
		utils.Error("closing %s: %v", w.path, err)
		return
	}

	w.eventsWritten.Add(uint64(len(batch)))
	utils.Verbose("flushed %d events to %s", len(batch), w.path)
}
