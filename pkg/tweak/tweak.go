// pkg/tweak/tweak.go - actions, descriptors and run results.

package tweak

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Category groups tweaks the way they are presented and exported.
type Category int

const (
	Essential Category = iota
	Advanced
	Preferences
	Software
)

// Categories lists every category in presentation order.
var Categories = []Category{Essential, Advanced, Preferences, Software}

var categoryInfo = map[Category]struct {
	key, title, legacy string
}{
	Essential:   {"essential", "Essential Tweaks", "Section1"},
	Advanced:    {"advanced", "Advanced Tweaks", "Section2"},
	Preferences: {"preferences", "Customize Preferences", "Section3"},
	Software:    {"software", "Install Software", "Section4"},
}

// Key is the stable identifier used in snapshot files and on the command line.
func (c Category) Key() string {
	if info, ok := categoryInfo[c]; ok {
		return info.key
	}
	return fmt.Sprintf("category%d", int(c))
}

// Title is the human readable name of the category.
func (c Category) Title() string {
	if info, ok := categoryInfo[c]; ok {
		return info.title
	}
	return c.Key()
}

// LegacySection is the section name older snapshot files used for c.
func (c Category) LegacySection() string {
	return categoryInfo[c].legacy
}

func (c Category) String() string { return c.Key() }

// ParseCategory accepts a key, a title or a legacy section name, ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		info := categoryInfo[c]
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.title) || strings.EqualFold(s, info.legacy) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Output receives progress lines from a running action.
type Output interface {
	Info(msg string, keyValues ...interface{})
	// Warn reports a soft failure. The action still counts as applied.
	Warn(msg string, keyValues ...interface{})
}

// Action applies one tweak. Implementations hold no state between calls.
type Action interface {
	Apply(ctx context.Context, out Output) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, out Output) error

func (f ActionFunc) Apply(ctx context.Context, out Output) error { return f(ctx, out) }

// Descriptor is an entry of the action registry.
type Descriptor struct {
	Label    string
	Category Category
	Group    string // optional sub-heading, e.g. "Browsers"
	Action   Action
}

// Outcome is the terminal state of one selected label.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Warned    Outcome = "warned" // succeeded with soft warnings
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped" // not reached because the run was cancelled
)

// FailureKind classifies a failed result.
type FailureKind string

const (
	KindNone    FailureKind = ""
	KindAction  FailureKind = "action"
	KindTimeout FailureKind = "timeout"
)

// Result records what happened to one selected label.
type Result struct {
	Label      string      `json:"label"`
	Outcome    Outcome     `json:"outcome"`
	Kind       FailureKind `json:"kind,omitempty"`
	Message    string      `json:"message,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Duration is the wall time the action took.
func (r Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Summary aggregates a run. Succeeded includes Warned results.
type Summary struct {
	RunID      string    `json:"run_id"`
	Category   Category  `json:"category"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Warned     int       `json:"warned"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	Results    []Result  `json:"results"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Add folds r into the counters and appends it to Results.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case Succeeded:
		s.Succeeded++
	case Warned:
		s.Succeeded++
		s.Warned++
	case Failed:
		s.Failed++
	case Skipped:
		s.Skipped++
	}
}
