package system

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnsupported is returned by primitives that do not exist on this OS.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrNotExist is wrapped when a registry value or service is absent.
	ErrNotExist = errors.New("does not exist")
)

// TimeoutError reports an external command that exceeded its bound and was killed.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// ExitError reports an external command that finished with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

// IsTimeout reports whether err contains a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
