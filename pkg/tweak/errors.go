package tweak

import (
	"fmt"

	"github.com/windowsadmins/tweaker/pkg/system"
)

// ActionError is returned by an action whose underlying primitive failed.
type ActionError struct {
	Step string
	Err  error
}

func (e *ActionError) Error() string {
	if e.Step == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Classify maps an action error onto a FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case system.IsTimeout(err):
		return KindTimeout
	default:
		return KindAction
	}
}
