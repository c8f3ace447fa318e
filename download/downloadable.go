// Package download implements the fetch-task variants and the job scheduler
// that drives them. Each task owns one of four integrity-verification
// strategies; a job executes a task set under bounded concurrency with
// per-task retry and aggregated progress.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piston-launch/pistonmeta/version"
)

var logger = slog.With(slog.String("realm", "download"))

// HTTPDoer is the transport capability tasks depend on. *http.Client
// satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloadable is one unit of artifact retrieval bound to one verification
// strategy. Download is idempotent and safely re-invocable; the scheduler
// bookkeeping accessors are safe for concurrent use.
type Downloadable interface {
	// URL is the primary source location.
	URL() string
	// TargetPath is the local destination.
	TargetPath() string
	// Download performs one verified fetch attempt.
	Download(ctx context.Context, client HTTPDoer) error

	// Attempts is the number of Download invocations so far.
	Attempts() int
	// Status is a short human-readable description of the task.
	Status() string
	// Monitor exposes the task's byte counters for aggregation.
	Monitor() *Monitor

	StartTime() (time.Time, bool)
	SetStartTime(time.Time)
	EndTime() (time.Time, bool)
	SetEndTime(time.Time)
}

// defaultTotalEstimate seeds a monitor before the real content length is
// known.
const defaultTotalEstimate = 5 * 1024 * 1024

// Monitor tracks the current/total byte counters of one task. Counters are
// written by the owning worker and read by the progress aggregator without
// further locking.
type Monitor struct {
	current atomic.Int64
	total   atomic.Int64

	mu       sync.Mutex
	onUpdate func()
}

// NewMonitor creates a monitor with an estimated total.
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.total.Store(defaultTotalEstimate)
	return m
}

func (m *Monitor) Current() int64 { return m.current.Load() }
func (m *Monitor) Total() int64   { return m.total.Load() }

func (m *Monitor) SetCurrent(current int64) {
	m.current.Store(current)
	m.notify()
}

func (m *Monitor) AddCurrent(delta int64) {
	m.current.Add(delta)
	m.notify()
}

func (m *Monitor) SetTotal(total int64) {
	m.total.Store(total)
	m.notify()
}

// onChange registers the aggregation callback. Only the owning job sets it.
func (m *Monitor) onChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

func (m *Monitor) notify() {
	m.mu.Lock()
	fn := m.onUpdate
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// tracker carries the bookkeeping shared by every strategy.
type tracker struct {
	url    string
	target string

	attempts atomic.Int32
	monitor  *Monitor

	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
}

func newTracker(url, target string) tracker {
	return tracker{url: url, target: target, monitor: NewMonitor()}
}

func (t *tracker) URL() string        { return t.url }
func (t *tracker) TargetPath() string { return t.target }
func (t *tracker) Attempts() int      { return int(t.attempts.Load()) }
func (t *tracker) Monitor() *Monitor  { return t.monitor }

func (t *tracker) Status() string {
	name := filepath.Base(t.target)
	if name == "." || name == string(filepath.Separator) {
		name = t.url
	}
	return "Downloading " + name
}

func (t *tracker) StartTime() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startTime, !t.startTime.IsZero()
}

func (t *tracker) SetStartTime(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = at
}

func (t *tracker) EndTime() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endTime, !t.endTime.IsZero()
}

func (t *tracker) SetEndTime(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endTime = at
}

// FolderError reports a failed destination-folder preparation, distinct from
// download errors because it is never retried.
type FolderError struct {
	Path string
	Err  error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("failed to prepare destination folder %s: %v", e.Path, e.Err)
}

func (e *FolderError) Unwrap() error { return e.Err }

// ensureTargetDir recursively creates the destination's parent directory.
func ensureTargetDir(target string) error {
	parent := filepath.Dir(target)
	if info, err := os.Stat(parent); err == nil && info.IsDir() {
		return nil
	}
	logger.Debug("creating directory", slog.String("path", parent))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return &FolderError{Path: parent, Err: err}
	}
	return nil
}

// ChecksumMismatchError reports an integrity failure. It is fatal for the
// attempt; the scheduler retries it like any other failure.
type ChecksumMismatchError struct {
	Expected version.SHA1Sum
	Actual   version.SHA1Sum
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum did not match downloaded file (expected %s, downloaded %s)", e.Expected, e.Actual)
}

// fetch issues a GET and fails on non-2xx statuses.
func fetch(ctx context.Context, client HTTPDoer, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("requesting %s: unexpected status %s", url, resp.Status)
	}
	return resp, nil
}

// fetchTracked reads the full response body, publishing the content length
// and streamed byte counts to the monitor.
func fetchTracked(ctx context.Context, client HTTPDoer, url string, monitor *Monitor) ([]byte, error) {
	resp, err := fetch(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > 0 {
		monitor.SetTotal(resp.ContentLength)
	}
	return readAllTracked(resp, monitor)
}

// readAllTracked drains a response body, publishing streamed byte counts to
// the monitor. It closes the body.
func readAllTracked(resp *http.Response, monitor *Monitor) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(&countingReader{r: resp.Body, monitor: monitor})
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

type countingReader struct {
	r       io.Reader
	monitor *Monitor
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.monitor.AddCurrent(int64(n))
	}
	return n, err
}

// hashLocalFile returns the checksum of an existing file, or false when the
// file does not exist.
func hashLocalFile(path string) (version.SHA1Sum, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return version.SHA1Sum{}, false, nil
		}
		return version.SHA1Sum{}, false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	sum, err := version.SHA1OfReader(f)
	if err != nil {
		return version.SHA1Sum{}, false, err
	}
	return sum, true, nil
}

func writeTarget(target string, data []byte) error {
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}
