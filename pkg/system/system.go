// pkg/system/system.go - OS configuration primitives used by tweaks.
//
// Everything that touches the machine goes through the interfaces in this
// file so the engine and the catalog can be exercised against Fake.

package system

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Root is a registry hive.
type Root int

const (
	LocalMachine Root = iota
	CurrentUser
)

// String returns the short hive name used in reg.exe command lines.
func (r Root) String() string {
	switch r {
	case LocalMachine:
		return "HKLM"
	case CurrentUser:
		return "HKCU"
	default:
		return fmt.Sprintf("Root(%d)", int(r))
	}
}

var rootPrefixes = map[string]Root{
	"HKLM":               LocalMachine,
	"HKEY_LOCAL_MACHINE": LocalMachine,
	"HKCU":               CurrentUser,
	"HKEY_CURRENT_USER":  CurrentUser,
}

// ParseKey splits a path such as `HKLM\SOFTWARE\Policies` into its hive and
// subkey.
func ParseKey(key string) (Root, string, error) {
	hive, path, ok := strings.Cut(key, `\`)
	if !ok || strings.TrimSpace(path) == "" {
		return 0, "", fmt.Errorf("registry key %q has no subkey", key)
	}
	root, found := rootPrefixes[strings.ToUpper(hive)]
	if !found {
		return 0, "", fmt.Errorf("registry key %q: unsupported hive %q", key, hive)
	}
	return root, strings.Trim(path, `\`), nil
}

// StartType is a service start mode.
type StartType int

const (
	StartManual StartType = iota
	StartDisabled
	StartAutomatic
)

func (s StartType) String() string {
	switch s {
	case StartManual:
		return "manual"
	case StartDisabled:
		return "disabled"
	case StartAutomatic:
		return "automatic"
	default:
		return fmt.Sprintf("StartType(%d)", int(s))
	}
}

// ParseStartType accepts the names used by sc.exe and the catalog.
func ParseStartType(s string) (StartType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual", "demand":
		return StartManual, nil
	case "disabled":
		return StartDisabled, nil
	case "automatic", "auto":
		return StartAutomatic, nil
	}
	return 0, fmt.Errorf("unknown service start type %q", s)
}

// Registry writes and deletes registry values. Keys are created as needed.
type Registry interface {
	SetDWORD(root Root, path, name string, value uint32) error
	SetString(root Root, path, name, value string) error
	// DeleteValue returns an error wrapping ErrNotExist when the value is absent.
	DeleteValue(root Root, path, name string) error
}

// Services changes service start modes through the service control manager.
type Services interface {
	SetStartType(name string, start StartType) error
}

// Result is the captured outcome of an external command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner invokes external programs.
type Runner interface {
	// Run waits for the program and returns *ExitError on a non-zero exit
	// status or *TimeoutError when the configured bound expires.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Start launches the program without waiting for it.
	Start(name string, args ...string) error
}

// Facts answers questions about the host.
type Facts interface {
	OSVersion() (string, error)
	IsPortable() (bool, error)
	ProcessRunning(name string) (bool, error)
}

// Host bundles the primitives a tweak may use.
type Host struct {
	Registry Registry
	Services Services
	Runner   Runner
	Facts    Facts
}

// CommandLine renders name and args the way they would be typed in a shell.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{name}, args...) {
		if p == "" || strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
