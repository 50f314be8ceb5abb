package tweak

import (
	"context"
	"fmt"

	"github.com/windowsadmins/tweaker/pkg/system"
)

// Step is one primitive operation inside a Tweak.
type Step interface {
	// Describe returns the equivalent command line, or "" for steps that
	// only inspect the host.
	Describe() string
	Apply(ctx context.Context, host system.Host, out Output) error
}

type optional struct{ Step }

// Optional marks s so that its failure becomes a warning and the tweak
// moves on to the next step.
func Optional(s Step) Step { return optional{s} }

// IsOptional reports whether s was wrapped by Optional.
func IsOptional(s Step) bool {
	_, ok := s.(optional)
	return ok
}

// Tweak is an Action made of ordered steps run against Host.
//
// A hard step failure stops the tweak and fails it with *ActionError. With
// BestEffort the first failure is reported as a warning instead and the tweak
// stops there, counting as applied. Timeouts always fail the tweak.
// Requires is an OS version constraint such as ">= 10.0.22000"; on a host
// that does not satisfy it the tweak only warns.
type Tweak struct {
	Steps      []Step
	BestEffort bool
	Requires   string
	Host       system.Host
}

// Apply runs the steps in order.
func (t *Tweak) Apply(ctx context.Context, out Output) error {
	if t.Requires != "" {
		ok, found, err := system.VersionSatisfies(t.Host.Facts, t.Requires)
		switch {
		case err != nil:
			out.Info("Could not determine Windows version, applying anyway", "error", err)
		case !ok:
			out.Warn(fmt.Sprintf("Not applicable: requires Windows %s, found %s", t.Requires, found))
			return nil
		}
	}

	for _, step := range t.Steps {
		desc := step.Describe()
		if desc != "" {
			out.Info("Command: " + desc)
		}

		err := step.Apply(ctx, t.Host, out)
		if err == nil {
			continue
		}
		if system.IsTimeout(err) {
			return &ActionError{Step: desc, Err: err}
		}
		if IsOptional(step) {
			out.Warn(fmt.Sprintf("%s failed: %v", desc, err))
			continue
		}
		if t.BestEffort {
			out.Warn(fmt.Sprintf("Might have partially failed: %v", err))
			return nil
		}
		return &ActionError{Step: desc, Err: err}
	}
	return nil
}
