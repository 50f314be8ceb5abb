// pkg/reporter/channel.go - hands events from the run goroutine to a display goroutine.

package reporter

import (
	"errors"
	"sync"
	"time"

	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// Channel is a Reporter that queues every event for another goroutine. The
// run never touches display state; the display goroutine reads Events and
// replays them with Drain. Sends block when the buffer is full, so no event
// is lost.
type Channel struct {
	ch   chan Event
	once sync.Once
}

// NewChannel creates a Channel with room for buffer pending events.
func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Event, buffer)}
}

// Events is the receiving side of the queue. It is closed by Close.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

func (c *Channel) send(ev Event) error {
	ev.Timestamp = time.Now()
	c.ch <- ev
	return nil
}

func (c *Channel) OnPlan(labels []string) error {
	return c.send(Event{Type: EventPlan, Labels: append([]string(nil), labels...)})
}

func (c *Channel) OnStarted(label string) error {
	return c.send(Event{Type: EventStarted, Label: label})
}

func (c *Channel) OnSucceeded(label string) error {
	return c.send(Event{Type: EventSucceeded, Label: label})
}

func (c *Channel) OnFailed(label, message string) error {
	return c.send(Event{Type: EventFailed, Label: label, Message: message})
}

func (c *Channel) OnWarning(label, message string) error {
	return c.send(Event{Type: EventWarning, Label: label, Message: message})
}

func (c *Channel) OnRunComplete(summary tweak.Summary) error {
	s := summary
	return c.send(Event{Type: EventRunComplete, Summary: &s})
}

func (c *Channel) OnFatal(err error) {
	_ = c.send(Event{Type: EventFatal, Message: err.Error()})
}

// Close ends the queue once every run reporting to c has returned.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.ch) })
}

// Replay delivers ev to sink as the matching callback. Plan and fatal events
// reach sink only when it implements Planner or FatalReporter.
func Replay(ev Event, sink Reporter) error {
	switch ev.Type {
	case EventPlan:
		if p, ok := sink.(Planner); ok {
			return p.OnPlan(ev.Labels)
		}
	case EventStarted:
		return sink.OnStarted(ev.Label)
	case EventSucceeded:
		return sink.OnSucceeded(ev.Label)
	case EventFailed:
		return sink.OnFailed(ev.Label, ev.Message)
	case EventWarning:
		return sink.OnWarning(ev.Label, ev.Message)
	case EventRunComplete:
		if ev.Summary != nil {
			return sink.OnRunComplete(*ev.Summary)
		}
	case EventFatal:
		if f, ok := sink.(FatalReporter); ok {
			f.OnFatal(errors.New(ev.Message))
		}
	}
	return nil
}

// Drain replays events into sink until the channel is closed. Errors from
// sink are returned joined once the channel is drained.
func Drain(events <-chan Event, sink Reporter) error {
	var errs []error
	for ev := range events {
		if err := Replay(ev, sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
