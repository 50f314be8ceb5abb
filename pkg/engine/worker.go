// pkg/engine/worker.go - background runs, at most one per category.

package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/reporter"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// ErrRunInProgress is returned by Worker.Start while the category already has
// an active run.
var ErrRunInProgress = errors.New("a run is already in progress for this category")

// Worker starts engine runs on their own goroutine so the caller stays
// responsive. A second Start for a busy category is rejected.
type Worker struct {
	engine *Engine

	mu   sync.Mutex
	busy map[tweak.Category]bool
	wg   sync.WaitGroup
}

// NewWorker wraps e.
func NewWorker(e *Engine) *Worker {
	return &Worker{engine: e, busy: make(map[tweak.Category]bool)}
}

// Start runs selection in the background. done, when not nil, is called on
// the run's goroutine with the result before the category is released.
func (w *Worker) Start(ctx context.Context, category tweak.Category, selection []string, rep reporter.Reporter, done func(tweak.Summary, error)) error {
	w.mu.Lock()
	if w.busy[category] {
		w.mu.Unlock()
		logging.Warn("Run rejected, category busy", "category", category.Key())
		return ErrRunInProgress
	}
	w.busy[category] = true
	w.wg.Add(1)
	w.mu.Unlock()

	labels := append([]string(nil), selection...)
	go func() {
		defer w.wg.Done()
		defer w.release(category)

		summary, err := w.engine.Run(ctx, category, labels, rep)
		if done != nil {
			done(summary, err)
		}
	}()
	return nil
}

func (w *Worker) release(category tweak.Category) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.busy, category)
}

// Busy reports whether category has an active run.
func (w *Worker) Busy(category tweak.Category) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy[category]
}

// Wait blocks until every started run has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}
