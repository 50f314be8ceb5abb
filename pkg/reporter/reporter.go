// pkg/reporter/reporter.go - the event sink a run reports to, plus fan-out and no-op sinks.

package reporter

import (
	"errors"
	"time"

	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// Reporter receives the lifecycle events of a run, in order, from the
// goroutine executing it. Implementations that render on another goroutine
// must synchronize themselves. A returned error aborts the run.
type Reporter interface {
	OnStarted(label string) error
	OnSucceeded(label string) error
	OnFailed(label, message string) error
	// OnWarning reports a soft failure inside a tweak that still counts as applied.
	OnWarning(label, message string) error
	OnRunComplete(summary tweak.Summary) error
}

// FatalReporter is implemented by reporters that want to hear about a run
// that was aborted before it could complete.
type FatalReporter interface {
	OnFatal(err error)
}

// EventType names a reporter callback.
type EventType string

const (
	EventPlan        EventType = "plan"
	EventStarted     EventType = "started"
	EventSucceeded   EventType = "succeeded"
	EventFailed      EventType = "failed"
	EventWarning     EventType = "warning"
	EventRunComplete EventType = "run_complete"
	EventFatal       EventType = "fatal"
)

// Event is one recorded callback.
type Event struct {
	Type      EventType      `json:"type"`
	Label     string         `json:"label,omitempty"`
	Labels    []string       `json:"labels,omitempty"` // EventPlan only
	Message   string         `json:"message,omitempty"`
	Summary   *tweak.Summary `json:"summary,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NoOp discards every event.
type NoOp struct{}

func (NoOp) OnStarted(string) error            { return nil }
func (NoOp) OnSucceeded(string) error          { return nil }
func (NoOp) OnFailed(string, string) error     { return nil }
func (NoOp) OnWarning(string, string) error    { return nil }
func (NoOp) OnRunComplete(tweak.Summary) error { return nil }

type multi []Reporter

// Multi forwards every event to each of reporters in order. All of them see
// the event; the errors are joined.
func Multi(reporters ...Reporter) Reporter {
	var m multi
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) each(fn func(Reporter) error) error {
	var errs []error
	for _, r := range m {
		if err := fn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) OnStarted(label string) error {
	return m.each(func(r Reporter) error { return r.OnStarted(label) })
}

func (m multi) OnSucceeded(label string) error {
	return m.each(func(r Reporter) error { return r.OnSucceeded(label) })
}

func (m multi) OnFailed(label, message string) error {
	return m.each(func(r Reporter) error { return r.OnFailed(label, message) })
}

func (m multi) OnWarning(label, message string) error {
	return m.each(func(r Reporter) error { return r.OnWarning(label, message) })
}

func (m multi) OnRunComplete(summary tweak.Summary) error {
	return m.each(func(r Reporter) error { return r.OnRunComplete(summary) })
}

func (m multi) OnFatal(err error) {
	for _, r := range m {
		if f, ok := r.(FatalReporter); ok {
			f.OnFatal(err)
		}
	}
}

func (m multi) OnPlan(labels []string) error {
	return m.each(func(r Reporter) error {
		if p, ok := r.(Planner); ok {
			return p.OnPlan(labels)
		}
		return nil
	})
}
