// pkg/logging/helpers.go - helpers for the common tweak lifecycle events

package logging

import (
	"fmt"
	"time"
)

// LogRunStart logs the start of a run over a category.
func LogRunStart(category, runID string, total int) {
	Event("run", "start", "started",
		fmt.Sprintf("Applying %d selected option(s) from %s", total, category),
		WithCategory(category),
		WithContext("run_id", runID))
}

// LogNothingSelected logs an empty selection.
func LogNothingSelected(category string) {
	Event("run", "start", "skipped", "No options selected", WithCategory(category))
}

// LogTweakStart logs the start of a single tweak.
func LogTweakStart(category, label string) {
	Event("tweak", "start", "started", "Starting: "+label, WithTweak(category, label))
}

// LogTweakComplete logs successful completion of a tweak.
func LogTweakComplete(category, label string, duration time.Duration) {
	Event("tweak", "complete", "completed", "Completed: "+label,
		WithTweak(category, label),
		WithDuration(duration))
}

// LogTweakWarning logs a soft failure that did not fail the tweak.
func LogTweakWarning(category, label, message string) {
	Event("tweak", "warning", "warning", fmt.Sprintf("%s: %s", label, message),
		WithTweak(category, label),
		WithLevel(LevelWarn))
}

// LogTweakFailed logs a failed tweak.
func LogTweakFailed(category, label, kind string, err error, duration time.Duration) {
	Event("tweak", "complete", "failed", fmt.Sprintf("Failed: %s - %v", label, err),
		WithTweak(category, label),
		WithError(err),
		WithDuration(duration),
		WithContext("kind", kind),
		WithLevel(LevelError))
}

// LogTweakSkipped logs a tweak that was not reached because the run was cancelled.
func LogTweakSkipped(category, label string) {
	Event("tweak", "complete", "skipped", "Skipped: "+label,
		WithTweak(category, label),
		WithLevel(LevelWarn))
}

// LogRunComplete logs the end of a run with its counters.
func LogRunComplete(category, runID string, succeeded, failed, skipped int, duration time.Duration) {
	status := "completed"
	if skipped > 0 {
		status = "cancelled"
	}
	Event("run", "complete", status,
		fmt.Sprintf("Execution Complete: Applied %d tweaks!", succeeded),
		WithCategory(category),
		WithDuration(duration),
		WithContext("run_id", runID),
		WithContext("failed", failed),
		WithContext("skipped", skipped))
}

// LogFatal logs an orchestration failure that aborted a run.
func LogFatal(category string, err error) {
	Event("run", "abort", "failed", "Run aborted", WithCategory(category), WithError(err), WithLevel(LevelError))
}
