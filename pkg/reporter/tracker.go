// pkg/reporter/tracker.go - thread-safe run state for status displays.

package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// Planner is implemented by reporters that want the validated selection
// before the first action starts.
type Planner interface {
	OnPlan(labels []string) error
}

// ItemStatus is the display state of one selected tweak.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusRunning   ItemStatus = "running"
	StatusCompleted ItemStatus = "completed"
	StatusWarning   ItemStatus = "warning"
	StatusFailed    ItemStatus = "failed"
	StatusSkipped   ItemStatus = "skipped"
)

// ItemProgress tracks a single tweak of the current run.
type ItemProgress struct {
	Label     string     `json:"label"`
	Status    ItemStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  int64      `json:"duration_ms"`
}

// Tracker is a Reporter that keeps the state of the current run for other
// goroutines to read, and broadcasts every event to its watchers. It may be
// read while a run drives it.
type Tracker struct {
	mu       sync.RWMutex
	items    map[string]*ItemProgress
	order    []string
	events   []Event
	summary  *tweak.Summary
	fatal    error
	logDir   string
	watchers []chan Event
}

// NewTracker creates a tracker. When logDir is set, progress.json is written
// there at the end of each run.
func NewTracker(logDir string) *Tracker {
	return &Tracker{
		items:  make(map[string]*ItemProgress),
		logDir: logDir,
	}
}

// OnPlan resets the tracker and registers labels as pending.
func (t *Tracker) OnPlan(labels []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = make(map[string]*ItemProgress, len(labels))
	t.order = t.order[:0]
	t.events = nil
	t.summary = nil
	t.fatal = nil
	for _, l := range labels {
		t.item(l)
	}
	return nil
}

// item returns the entry for label, creating it if needed. Callers hold mu.
func (t *Tracker) item(label string) *ItemProgress {
	it, ok := t.items[label]
	if !ok {
		it = &ItemProgress{Label: label, Status: StatusPending}
		t.items[label] = it
		t.order = append(t.order, label)
	}
	return it
}

func (t *Tracker) finish(it *ItemProgress, status ItemStatus) {
	now := time.Now()
	if len(it.Warnings) > 0 && status == StatusCompleted {
		status = StatusWarning
	}
	it.Status = status
	it.EndTime = &now
	if !it.StartTime.IsZero() {
		it.Duration = now.Sub(it.StartTime).Milliseconds()
	}
}

func (t *Tracker) OnStarted(label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.item(label)
	it.Status = StatusRunning
	it.StartTime = time.Now()
	t.publish(Event{Type: EventStarted, Label: label})
	return nil
}

func (t *Tracker) OnSucceeded(label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finish(t.item(label), StatusCompleted)
	t.publish(Event{Type: EventSucceeded, Label: label})
	return nil
}

func (t *Tracker) OnFailed(label, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.item(label)
	it.Error = message
	t.finish(it, StatusFailed)
	t.publish(Event{Type: EventFailed, Label: label, Message: message})
	return nil
}

func (t *Tracker) OnWarning(label, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	it := t.item(label)
	it.Warnings = append(it.Warnings, message)
	t.publish(Event{Type: EventWarning, Label: label, Message: message})
	return nil
}

func (t *Tracker) OnRunComplete(summary tweak.Summary) error {
	t.mu.Lock()
	for _, r := range summary.Results {
		if r.Outcome == tweak.Skipped {
			t.finish(t.item(r.Label), StatusSkipped)
		}
	}
	s := summary
	t.summary = &s
	t.publish(Event{Type: EventRunComplete, Summary: &s})
	t.mu.Unlock()

	if err := t.SaveProgressFile(); err != nil {
		logging.Warn("Could not save progress file", "error", err)
	}
	return nil
}

// OnFatal records why the run was aborted.
func (t *Tracker) OnFatal(err error) {
	t.mu.Lock()
	t.fatal = err
	t.publish(Event{Type: EventFatal, Message: err.Error()})
	t.mu.Unlock()

	if err := t.SaveProgressFile(); err != nil {
		logging.Warn("Could not save progress file", "error", err)
	}
}

// publish records ev and offers it to every watcher. Callers hold mu.
func (t *Tracker) publish(ev Event) {
	ev.Timestamp = time.Now()
	t.events = append(t.events, ev)
	for _, w := range t.watchers {
		select {
		case w <- ev:
		default:
			// watcher is behind; it can resync from Items
		}
	}
}

// Subscribe returns a channel receiving every subsequent event.
func (t *Tracker) Subscribe() <-chan Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := make(chan Event, 64)
	t.watchers = append(t.watchers, w)
	return w
}

// Unsubscribe stops and closes a channel returned by Subscribe.
func (t *Tracker) Unsubscribe(watcher <-chan Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range t.watchers {
		if w == watcher {
			close(w)
			t.watchers = append(t.watchers[:i], t.watchers[i+1:]...)
			return
		}
	}
}

// Close closes every watcher channel.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, w := range t.watchers {
		close(w)
	}
	t.watchers = nil
}

// Items returns a copy of every tracked item in plan order.
func (t *Tracker) Items() []ItemProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ItemProgress, 0, len(t.order))
	for _, l := range t.order {
		it := *t.items[l]
		it.Warnings = append([]string(nil), it.Warnings...)
		out = append(out, it)
	}
	return out
}

// Events returns a copy of every event of the current run.
func (t *Tracker) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Event(nil), t.events...)
}

// Summary returns the summary of the last completed run.
func (t *Tracker) Summary() (tweak.Summary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.summary == nil {
		return tweak.Summary{}, false
	}
	return *t.summary, true
}

// ExportToJSON renders the current state for status consumers.
func (t *Tracker) ExportToJSON() ([]byte, error) {
	items := t.Items()

	t.mu.RLock()
	data := map[string]interface{}{
		"items":     items,
		"summary":   t.summary,
		"timestamp": time.Now(),
	}
	if t.fatal != nil {
		data["fatal"] = t.fatal.Error()
	}
	out, err := json.MarshalIndent(data, "", "  ")
	t.mu.RUnlock()
	return out, err
}

// SaveProgressFile writes progress.json to the log directory, if one is set.
func (t *Tracker) SaveProgressFile() error {
	if t.logDir == "" {
		return nil
	}
	data, err := t.ExportToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(t.logDir, 0755); err != nil {
		return fmt.Errorf("creating progress directory: %w", err)
	}
	return os.WriteFile(filepath.Join(t.logDir, "progress.json"), data, 0644)
}
