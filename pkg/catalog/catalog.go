// pkg/catalog/catalog.go - the action registry: category scoped label lookup.

package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("catalog is sealed")

// UnknownActionError means a selected label has no registered action. It
// signals that the selection and the registry are out of sync.
type UnknownActionError struct {
	Category tweak.Category
	Label    string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q in %s", e.Label, e.Category.Title())
}

// DuplicateLabelError is returned when a label is registered twice in a category.
type DuplicateLabelError struct {
	Category tweak.Category
	Label    string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label %q in %s", e.Label, e.Category.Title())
}

// Registry maps (category, label) to a descriptor and remembers the
// declaration order of labels within each category.
type Registry struct {
	mu      sync.RWMutex
	entries map[tweak.Category]map[string]tweak.Descriptor
	order   map[tweak.Category][]string
	sealed  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[tweak.Category]map[string]tweak.Descriptor),
		order:   make(map[tweak.Category][]string),
	}
}

// Register adds d. Labels are unique within a category.
func (r *Registry) Register(d tweak.Descriptor) error {
	if d.Label == "" {
		return errors.New("descriptor label is empty")
	}
	if d.Action == nil {
		return fmt.Errorf("descriptor %q has no action", d.Label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	byLabel, ok := r.entries[d.Category]
	if !ok {
		byLabel = make(map[string]tweak.Descriptor)
		r.entries[d.Category] = byLabel
	}
	if _, exists := byLabel[d.Label]; exists {
		return &DuplicateLabelError{Category: d.Category, Label: d.Label}
	}
	byLabel[d.Label] = d
	r.order[d.Category] = append(r.order[d.Category], d.Label)
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Resolve returns the action registered for label in category.
func (r *Registry) Resolve(category tweak.Category, label string) (tweak.Action, error) {
	d, err := r.Descriptor(category, label)
	if err != nil {
		return nil, err
	}
	return d.Action, nil
}

// Descriptor returns the full registry entry for label in category.
func (r *Registry) Descriptor(category tweak.Category, label string) (tweak.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.entries[category][label]
	if !ok {
		return tweak.Descriptor{}, &UnknownActionError{Category: category, Label: label}
	}
	return d, nil
}

// Has reports whether label is registered in category.
func (r *Registry) Has(category tweak.Category, label string) bool {
	_, err := r.Descriptor(category, label)
	return err == nil
}

// Labels returns the labels of category in declaration order.
func (r *Registry) Labels(category tweak.Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order[category]...)
}

// Categories returns the categories that have at least one entry, in
// presentation order.
func (r *Registry) Categories() []tweak.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tweak.Category
	for _, c := range tweak.Categories {
		if len(r.order[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}
