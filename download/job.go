package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piston-launch/pistonmeta/progress"
)

const (
	// DefaultConcurrency is the worker pool size when none is configured.
	DefaultConcurrency = 16
	// DefaultMaxAttempts is the per-task attempt budget.
	DefaultMaxAttempts = 5
	// defaultRequestTimeout bounds a single request end to end; there is no
	// cooperative mid-task cancellation beyond it.
	defaultRequestTimeout = 15 * time.Second
)

// JobError is the aggregate failure of one job run. Individual failing URLs
// are logged, not collected.
type JobError struct {
	Name     string
	Failures int
	Elapsed  time.Duration
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %q finished with %d failure(s) (took %s)", e.Name, e.Failures, e.Elapsed.Round(time.Second))
}

// Job runs a fixed task set to completion under bounded concurrency. Workers
// pull from a single shared queue; a task that fails is retried in place by
// its worker until it succeeds or its attempt budget is exhausted.
type Job struct {
	name           string
	client         HTTPDoer
	concurrency    int
	maxAttempts    int
	ignoreFailures bool
	sink           progress.Sink

	mu        sync.Mutex
	all       []Downloadable
	remaining []Downloadable
	failures  []Downloadable
}

// Option configures a Job.
type Option func(*Job)

// WithClient replaces the default HTTP client.
func WithClient(client HTTPDoer) Option {
	return func(j *Job) { j.client = client }
}

// WithConcurrency bounds the worker pool.
func WithConcurrency(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// WithMaxAttempts sets the per-task attempt budget.
func WithMaxAttempts(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.maxAttempts = n
		}
	}
}

// WithIgnoreFailures makes the job succeed regardless of permanent task
// failures. Callers relying on completeness must check file presence
// themselves.
func WithIgnoreFailures(ignore bool) Option {
	return func(j *Job) { j.ignoreFailures = ignore }
}

// WithProgress attaches a progress sink.
func WithProgress(sink progress.Sink) Option {
	return func(j *Job) {
		if sink != nil {
			j.sink = sink
		}
	}
}

// NewJob creates a job with the given name.
func NewJob(name string, opts ...Option) *Job {
	j := &Job{
		name:        name,
		client:      NewHTTPClient(),
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		sink:        progress.Discard,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewHTTPClient builds the transport used by default: fixed connect/read
// timeouts, caching disabled by the request headers below.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultRequestTimeout,
		Transport: &nocacheTransport{
			base: &http.Transport{
				ResponseHeaderTimeout: defaultRequestTimeout,
			},
		},
	}
}

type nocacheTransport struct {
	base http.RoundTripper
}

func (t *nocacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Cache-Control", "no-store,max-age=0,no-cache")
	req.Header.Set("Expires", "0")
	req.Header.Set("Pragma", "no-cache")
	return t.base.RoundTrip(req)
}

// Add appends tasks to the job. Tasks must not share a destination path;
// construction is responsible for de-duplication.
func (j *Job) Add(tasks ...Downloadable) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, task := range tasks {
		task.Monitor().onChange(j.updateProgress)
		j.all = append(j.all, task)
		j.remaining = append(j.remaining, task)
	}
}

// Size is the number of tasks in the job.
func (j *Job) Size() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.all)
}

// Run drives every task to a terminal state and reports the aggregate
// outcome. The progress sink is cleared as the final action regardless of
// outcome.
func (j *Job) Run(ctx context.Context) error {
	j.sink.Clear()
	defer j.sink.Clear()
	started := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < j.concurrency; i++ {
		eg.Go(func() error { return j.worker(ctx) })
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("job %q aborted: %w", j.name, err)
	}

	elapsed := time.Since(started)
	j.mu.Lock()
	failed := len(j.failures)
	j.mu.Unlock()
	if failed > 0 && !j.ignoreFailures {
		return &JobError{Name: j.name, Failures: failed, Elapsed: elapsed}
	}
	logger.Info("job finished successfully",
		slog.String("job", j.name), slog.Duration("took", elapsed), slog.Int("failures", failed))
	return nil
}

// next pops the next pending task, or nil when the queue is drained.
func (j *Job) next() Downloadable {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.remaining) == 0 {
		return nil
	}
	task := j.remaining[0]
	j.remaining = j.remaining[1:]
	return task
}

func (j *Job) worker(ctx context.Context) error {
	for {
		task := j.next()
		if task == nil {
			return nil
		}
		if err := j.execute(ctx, task); err != nil {
			return err
		}
	}
}

// execute retries one task in place until it succeeds or exhausts its
// attempt budget. Only context cancellation is returned as an error; task
// failures are collected.
func (j *Job) execute(ctx context.Context, task Downloadable) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if task.Attempts() >= j.maxAttempts {
			logger.Error("gave up trying to download",
				slog.String("job", j.name), slog.String("url", task.URL()), slog.Int("attempts", task.Attempts()))
			j.recordFailure(task)
			j.finishMonitor(task)
			return nil
		}
		if _, ok := task.StartTime(); !ok {
			task.SetStartTime(time.Now())
		}

		logger.Info("attempting to download",
			slog.String("job", j.name), slog.String("target", task.TargetPath()), slog.Int("try", task.Attempts()+1))
		if err := task.Download(ctx, j.client); err != nil {
			logger.Warn("couldn't download",
				slog.String("job", j.name), slog.String("url", task.URL()), slog.String("error", err.Error()))
			var folderErr *FolderError
			if errors.As(err, &folderErr) {
				// Resource errors are not retried.
				j.recordFailure(task)
				j.finishMonitor(task)
				return nil
			}
			continue
		}

		task.SetEndTime(time.Now())
		j.finishMonitor(task)
		logger.Info("finished downloading",
			slog.String("job", j.name), slog.String("target", task.TargetPath()), slog.Int("attempts", task.Attempts()))
		return nil
	}
}

func (j *Job) recordFailure(task Downloadable) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, task)
}

// finishMonitor snaps the counters shut so aggregate progress completes even
// for skipped or failed tasks.
func (j *Job) finishMonitor(task Downloadable) {
	m := task.Monitor()
	m.SetCurrent(m.Total())
}

// updateProgress publishes an aggregate 0-100 figure and a status line taken
// from the most recently started unfinished task, preferring in-flight tasks
// over finished ones. Counter reads are best effort; a slightly stale total
// is acceptable.
func (j *Job) updateProgress() {
	j.mu.Lock()
	all := j.all
	j.mu.Unlock()
	if len(all) == 0 {
		j.sink.Clear()
		return
	}

	var current, total int64
	var active Downloadable
	var activeStart time.Time
	for _, task := range all {
		current += task.Monitor().Current()
		total += task.Monitor().Total()

		start, started := task.StartTime()
		_, done := task.EndTime()
		if !started || done {
			continue
		}
		if active == nil || start.After(activeStart) {
			active, activeStart = task, start
		}
	}

	if active != nil {
		j.sink.SetStatus(active.Status())
	}
	scaled := int64(0)
	if total > 0 {
		scaled = int64(math.Ceil(float64(current) / float64(total) * 100))
		if scaled > 100 {
			scaled = 100
		}
	}
	j.sink.SetCurrent(scaled)
	j.sink.SetTotal(100)
}
