// pkg/retry/retry.go - retrying an operation with exponential backoff.

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windowsadmins/tweaker/pkg/logging"
)

// permanentError stops Do from retrying.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryConfig defines the configuration for retry attempts.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
	// Name appears in the retry log lines.
	Name string
}

// Do calls action until it succeeds, returns a Permanent error, the attempts
// run out or ctx is done. It returns the last error.
func Do(ctx context.Context, config RetryConfig, action func() error) error {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	interval := config.InitialInterval

	var err error
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		if err = action(); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			logging.Debug("Non-retryable error", "operation", config.Name, "attempt", attempt, "error", perm.err)
			return perm.err
		}
		if attempt == config.MaxRetries {
			break
		}

		logging.Debug(fmt.Sprintf("Attempt %d/%d failed, retrying in %s", attempt, config.MaxRetries, interval),
			"operation", config.Name, "error", err)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * config.Multiplier)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", config.Name, config.MaxRetries, err)
}
