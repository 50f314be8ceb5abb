// pkg/elevate/elevate.go - administrator checks and elevated relaunch.

package elevate

import "errors"

// ErrUnsupported is returned where the platform has no elevation prompt.
var ErrUnsupported = errors.New("elevated relaunch is not supported on this platform")

// Flag is appended to the arguments of a relaunched process so that it does
// not try to elevate again.
const Flag = "--elevated"

// Relaunched reports whether args carry Flag.
func Relaunched(args []string) bool {
	for _, a := range args {
		if a == Flag {
			return true
		}
	}
	return false
}

// StripFlag returns args without Flag.
func StripFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a != Flag {
			out = append(out, a)
		}
	}
	return out
}
