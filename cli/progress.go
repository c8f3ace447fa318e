package cli

import (
	"io"
	"sync"
	"time"

	prettyprogress "github.com/jedib0t/go-pretty/v6/progress"

	"github.com/piston-launch/pistonmeta/progress"
)

// terminalSink renders job progress as a single terminal bar. A Clear ends
// the current tracker; the next event starts a fresh one.
type terminalSink struct {
	writer prettyprogress.Writer

	mu      sync.Mutex
	tracker *prettyprogress.Tracker
}

// newTerminalSink builds a sink rendering to out. The returned stop function
// must be called once the job is finished.
func newTerminalSink(out io.Writer) (progress.Sink, func()) {
	pw := prettyprogress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetTrackerLength(40)
	pw.SetAutoStop(false)
	go pw.Render()

	s := &terminalSink{writer: pw}
	return s, func() {
		s.Clear()
		pw.Stop()
	}
}

func (s *terminalSink) current() *prettyprogress.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		s.tracker = &prettyprogress.Tracker{Message: "Preparing", Total: 100}
		s.writer.AppendTracker(s.tracker)
	}
	return s.tracker
}

func (s *terminalSink) SetStatus(status string) {
	s.current().UpdateMessage(status)
}

func (s *terminalSink) SetCurrent(current int64) {
	s.current().SetValue(current)
}

func (s *terminalSink) SetTotal(total int64) {
	s.current().UpdateTotal(total)
}

func (s *terminalSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker != nil {
		s.tracker.MarkAsDone()
		s.tracker = nil
	}
}
