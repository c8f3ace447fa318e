// Package progress defines the sink consumed by download jobs to publish
// advisory progress. Implementations render to a terminal, a log, or nothing.
package progress

// Sink receives progress events. Published figures are advisory: a job may
// publish slightly stale totals, and a Clear always terminates a job.
type Sink interface {
	SetStatus(status string)
	SetCurrent(current int64)
	SetTotal(total int64)
	Clear()
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) SetStatus(string) {}
func (discard) SetCurrent(int64) {}
func (discard) SetTotal(int64)   {}
func (discard) Clear()           {}

// Func adapts a callback into a Sink, in the spirit of http.HandlerFunc.
type Func func(Update)

// Update is one progress event. Exactly one of the Set booleans is relevant
// per event; Clear resets everything.
type Update struct {
	Status     string
	HasStatus  bool
	Current    int64
	HasCurrent bool
	Total      int64
	HasTotal   bool
	Cleared    bool
}

func (f Func) SetStatus(status string)  { f(Update{Status: status, HasStatus: true}) }
func (f Func) SetCurrent(current int64) { f(Update{Current: current, HasCurrent: true}) }
func (f Func) SetTotal(total int64)     { f(Update{Total: total, HasTotal: true}) }
func (f Func) Clear()                   { f(Update{Cleared: true}) }
