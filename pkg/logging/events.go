// pkg/logging/events.go - structured lifecycle events mirrored into events.jsonl

package logging

import (
	"time"

	"github.com/google/uuid"
)

// LogEvent describes one lifecycle transition of a run or a tweak.
type LogEvent struct {
	EventID   string
	EventType string // run, tweak
	Action    string // start, complete, warning
	Status    string // started, completed, failed, warning, skipped, cancelled
	Message   string
	Level     LogLevel
	Category  string
	Label     string
	Duration  *time.Duration
	Error     string
	Context   map[string]interface{}
}

// EventOption allows customizing log events
type EventOption func(*LogEvent)

// WithTweak sets the category and label the event refers to.
func WithTweak(category, label string) EventOption {
	return func(e *LogEvent) {
		e.Category = category
		e.Label = label
	}
}

// WithCategory sets the category for run level events.
func WithCategory(category string) EventOption {
	return func(e *LogEvent) {
		e.Category = category
	}
}

// WithDuration sets the duration for the event
func WithDuration(duration time.Duration) EventOption {
	return func(e *LogEvent) {
		e.Duration = &duration
	}
}

// WithError sets the error message for the event
func WithError(err error) EventOption {
	return func(e *LogEvent) {
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// WithContext adds context information to the event
func WithContext(key string, value interface{}) EventOption {
	return func(e *LogEvent) {
		if e.Context == nil {
			e.Context = make(map[string]interface{})
		}
		e.Context[key] = value
	}
}

// WithLevel sets the log level for the event
func WithLevel(level LogLevel) EventOption {
	return func(e *LogEvent) {
		e.Level = level
	}
}

// newEvent applies opts over an INFO level event.
func newEvent(eventType, action, status, message string, opts ...EventOption) LogEvent {
	event := LogEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Action:    action,
		Status:    status,
		Message:   message,
		Level:     LevelInfo,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// keyValues flattens the event into the key/value form used by the main log.
// Only populated fields are emitted so that plain lines stay short.
func (e LogEvent) keyValues() []interface{} {
	kv := []interface{}{"event", e.EventType + "." + e.Action, "status", e.Status}
	if e.Category != "" {
		kv = append(kv, "category", e.Category)
	}
	if e.Label != "" {
		kv = append(kv, "tweak", e.Label)
	}
	if e.Duration != nil {
		kv = append(kv, "duration", e.Duration.Round(time.Millisecond).String())
	}
	if e.Error != "" {
		kv = append(kv, "error", e.Error)
	}
	for k, v := range e.Context {
		kv = append(kv, k, v)
	}
	kv = append(kv, "event_id", e.EventID)
	return kv
}

// Event logs a lifecycle event through the process-wide logger.
func Event(eventType, action, status, message string, opts ...EventOption) {
	event := newEvent(eventType, action, status, message, opts...)
	logAt(event.Level, event.Message, event.keyValues())
}
