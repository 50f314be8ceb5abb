// pkg/selection/selection.go - checkbox state per category and the selection sets built from it.

package selection

import (
	"sync"

	"github.com/windowsadmins/tweaker/pkg/catalog"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// State holds which labels are checked in each category. Every label starts
// unchecked. It is safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	registry *catalog.Registry
	checked  map[tweak.Category]map[string]bool
}

// NewState creates an all-unchecked state over reg.
func NewState(reg *catalog.Registry) *State {
	return &State{
		registry: reg,
		checked:  make(map[tweak.Category]map[string]bool),
	}
}

// Set checks or unchecks label. Labels the registry does not know are
// rejected with *catalog.UnknownActionError.
func (s *State) Set(category tweak.Category, label string, on bool) error {
	if !s.registry.Has(category, label) {
		return &catalog.UnknownActionError{Category: category, Label: label}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(category, label, on)
	return nil
}

// set stores the flag. Callers hold mu.
func (s *State) set(category tweak.Category, label string, on bool) {
	m, ok := s.checked[category]
	if !ok {
		m = make(map[string]bool)
		s.checked[category] = m
	}
	if on {
		m[label] = true
	} else {
		delete(m, label)
	}
}

// Checked reports whether label is checked.
func (s *State) Checked(category tweak.Category, label string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checked[category][label]
}

// SelectAll checks every label of category.
func (s *State) SelectAll(category tweak.Category) {
	labels := s.registry.Labels(category)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range labels {
		s.set(category, l, true)
	}
}

// Clear unchecks every label of category.
func (s *State) Clear(category tweak.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checked, category)
}

// Selection returns the checked labels of category in declaration order,
// regardless of the order they were checked in.
func (s *State) Selection(category tweak.Category) []string {
	labels := s.registry.Labels(category)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, l := range labels {
		if s.checked[category][l] {
			out = append(out, l)
		}
	}
	return out
}

// Snapshot returns a copy of every flag, unchecked labels included.
func (s *State) Snapshot() map[tweak.Category]map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[tweak.Category]map[string]bool)
	for _, c := range s.registry.Categories() {
		m := make(map[string]bool)
		for _, l := range s.registry.Labels(c) {
			m[l] = s.checked[c][l]
		}
		out[c] = m
	}
	return out
}
