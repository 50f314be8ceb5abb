// pkg/engine/engine.go - runs a selection of tweaks in order with per-item failure isolation.

package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/windowsadmins/tweaker/pkg/catalog"
	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/reporter"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// ReporterError aborts a run: the reporter refused an event, so the rest of
// the run could not be shown to anyone.
type ReporterError struct {
	Event reporter.EventType
	Label string
	Err   error
}

func (e *ReporterError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("reporter failed on %s %q: %v", e.Event, e.Label, e.Err)
	}
	return fmt.Sprintf("reporter failed on %s: %v", e.Event, e.Err)
}

func (e *ReporterError) Unwrap() error { return e.Err }

// Option configures an Engine.
type Option func(*Engine)

// WithRunIDs replaces the run id generator.
func WithRunIDs(next func() string) Option {
	return func(e *Engine) { e.newRunID = next }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine executes selections against a registry. It holds no per-run state
// and may run different categories concurrently; see Worker for the
// one-run-per-category guard.
type Engine struct {
	registry *catalog.Registry
	newRunID func() string
	now      func() time.Time
}

// New creates an Engine over reg.
func New(reg *catalog.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run applies each label of selection in order and reports every step to rep.
//
// Every label is resolved before anything runs; an unknown label fails the
// whole run with *catalog.UnknownActionError. A failing action never stops
// the run. Once ctx is done the remaining labels are skipped, but an action
// that already started is allowed to finish. A reporter error aborts the run
// with *ReporterError. The returned summary covers what ran even on error.
func (e *Engine) Run(ctx context.Context, category tweak.Category, selection []string, rep reporter.Reporter) (tweak.Summary, error) {
	if rep == nil {
		rep = reporter.NoOp{}
	}
	summary := tweak.Summary{
		RunID:     e.newRunID(),
		Category:  category,
		Total:     len(selection),
		StartedAt: e.now(),
	}

	actions := make([]tweak.Action, len(selection))
	for i, label := range selection {
		action, err := e.registry.Resolve(category, label)
		if err != nil {
			return e.abort(summary, rep, err)
		}
		actions[i] = action
	}

	if len(selection) == 0 {
		logging.LogNothingSelected(category.Key())
		return e.complete(summary, rep)
	}

	logging.LogRunStart(category.Key(), summary.RunID, len(selection))
	if p, ok := rep.(reporter.Planner); ok {
		if err := p.OnPlan(append([]string(nil), selection...)); err != nil {
			return e.abort(summary, rep, &ReporterError{Event: reporter.EventPlan, Err: err})
		}
	}

	for i, label := range selection {
		if ctx.Err() != nil {
			summary.Cancelled = true
			for _, rest := range selection[i:] {
				logging.LogTweakSkipped(category.Key(), rest)
				now := e.now()
				summary.Add(tweak.Result{Label: rest, Outcome: tweak.Skipped, StartedAt: now, FinishedAt: now})
			}
			break
		}

		result, err := e.runOne(ctx, category, label, actions[i], rep)
		summary.Add(result)
		if err != nil {
			return e.abort(summary, rep, err)
		}
	}

	return e.complete(summary, rep)
}

// runOne applies a single action. The returned error is always a reporter
// failure; action failures are part of the result.
func (e *Engine) runOne(ctx context.Context, category tweak.Category, label string, action tweak.Action, rep reporter.Reporter) (tweak.Result, error) {
	result := tweak.Result{Label: label, StartedAt: e.now()}

	if err := rep.OnStarted(label); err != nil {
		result.Outcome = tweak.Skipped
		result.FinishedAt = e.now()
		return result, &ReporterError{Event: reporter.EventStarted, Label: label, Err: err}
	}
	logging.LogTweakStart(category.Key(), label)

	out := &output{category: category.Key(), label: label, rep: rep}
	err := apply(ctx, action, out)
	result.FinishedAt = e.now()
	result.Warnings = out.warnings

	if out.err != nil {
		result.Outcome = tweak.Failed
		result.Kind = tweak.KindAction
		result.Message = "reporter failed"
		return result, &ReporterError{Event: reporter.EventWarning, Label: label, Err: out.err}
	}

	if err != nil {
		result.Outcome = tweak.Failed
		result.Kind = tweak.Classify(err)
		result.Message = err.Error()
		logging.LogTweakFailed(category.Key(), label, string(result.Kind), err, result.Duration())
		if rerr := rep.OnFailed(label, result.Message); rerr != nil {
			return result, &ReporterError{Event: reporter.EventFailed, Label: label, Err: rerr}
		}
		return result, nil
	}

	result.Outcome = tweak.Succeeded
	if len(out.warnings) > 0 {
		result.Outcome = tweak.Warned
	}
	logging.LogTweakComplete(category.Key(), label, result.Duration())
	if rerr := rep.OnSucceeded(label); rerr != nil {
		return result, &ReporterError{Event: reporter.EventSucceeded, Label: label, Err: rerr}
	}
	return result, nil
}

// apply runs action detached from ctx cancellation and turns a panic into an
// action failure.
func apply(ctx context.Context, action tweak.Action, out tweak.Output) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("Action panicked", "panic", r, "stack", string(debug.Stack()))
			err = &tweak.ActionError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return action.Apply(context.WithoutCancel(ctx), out)
}

func (e *Engine) complete(summary tweak.Summary, rep reporter.Reporter) (tweak.Summary, error) {
	summary.FinishedAt = e.now()
	if summary.Total > 0 {
		logging.LogRunComplete(summary.Category.Key(), summary.RunID, summary.Succeeded, summary.Failed, summary.Skipped,
			summary.FinishedAt.Sub(summary.StartedAt))
	}
	if err := rep.OnRunComplete(summary); err != nil {
		return e.abort(summary, rep, &ReporterError{Event: reporter.EventRunComplete, Err: err})
	}
	return summary, nil
}

func (e *Engine) abort(summary tweak.Summary, rep reporter.Reporter, err error) (tweak.Summary, error) {
	summary.FinishedAt = e.now()
	logging.LogFatal(summary.Category.Key(), err)
	if f, ok := rep.(reporter.FatalReporter); ok {
		f.OnFatal(err)
	}
	return summary, err
}

// output forwards action progress to the log and warnings to the reporter.
type output struct {
	category string
	label    string
	rep      reporter.Reporter
	warnings []string
	err      error
}

func (o *output) Info(msg string, keyValues ...interface{}) {
	logging.Info(msg, append(keyValues, "tweak", o.label)...)
}

func (o *output) Warn(msg string, keyValues ...interface{}) {
	if len(keyValues) > 0 {
		msg = fmt.Sprintf("%s %v", msg, keyValues)
	}
	o.warnings = append(o.warnings, msg)
	logging.LogTweakWarning(o.category, o.label, msg)
	if err := o.rep.OnWarning(o.label, msg); err != nil && o.err == nil {
		o.err = err
	}
}
