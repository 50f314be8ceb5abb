package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ExecRunner runs programs with os/exec, bounding each invocation by Timeout.
type ExecRunner struct {
	Timeout time.Duration

	mu      sync.RWMutex
	aliases map[string]string
}

// NewExecRunner creates a runner whose commands are killed after timeout.
// A zero timeout leaves commands unbounded.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout, aliases: make(map[string]string)}
}

// Alias makes Run and Start substitute path whenever name is invoked, so
// configured tool locations (winget, powershell) apply to every tweak.
func (r *ExecRunner) Alias(name, path string) {
	if path == "" || strings.EqualFold(name, path) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[strings.ToLower(name)] = path
}

func (r *ExecRunner) resolve(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.aliases[strings.ToLower(name)]; ok {
		return p
	}
	return name
}

// Run executes name with args and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if name == "" {
		return Result{}, errors.New("command cannot be empty")
	}

	started := time.Now()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.resolve(name), args...)
	hideWindow(cmd)
	// Children that inherit the output pipes must not keep Run blocked after a kill.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}
	line := CommandLine(name, args...)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, &TimeoutError{Command: line, Timeout: r.Timeout}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Command: line, Code: result.ExitCode, Stderr: result.Stderr}
		}
		result.ExitCode = -1
		return result, fmt.Errorf("running %s: %w", line, err)
	}
	return result, nil
}

// Start launches name without waiting. The process is reaped in the background.
func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(r.resolve(name), args...)
	hideWindow(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", CommandLine(name, args...), err)
	}
	go cmd.Wait()
	return nil
}
