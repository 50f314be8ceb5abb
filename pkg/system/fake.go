package system

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory Host used by tests. It records every call in order
// and can be told to fail specific operations.
type Fake struct {
	mu sync.Mutex

	values     map[string]interface{}
	startTypes map[string]StartType
	errs       map[string]error
	results    map[string]Result
	running    map[string]bool

	Calls    []string
	Version  string
	Portable bool
}

// NewFake returns an empty Fake reporting Windows 11 23H2 on a desktop chassis.
func NewFake() *Fake {
	return &Fake{
		values:     make(map[string]interface{}),
		startTypes: make(map[string]StartType),
		errs:       make(map[string]error),
		results:    make(map[string]Result),
		running:    make(map[string]bool),
		Version:    "10.0.22631",
	}
}

// Host exposes f through every Host interface.
func (f *Fake) Host() Host {
	return Host{Registry: f, Services: f, Runner: f, Facts: f}
}

func valueKey(root Root, path, name string) string {
	return strings.ToLower(fmt.Sprintf(`%s\%s\%s`, root, path, name))
}

// FailRegistry makes any write or delete of the value return err.
func (f *Fake) FailRegistry(root Root, path, name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs["reg:"+valueKey(root, path, name)] = err
}

// FailService makes SetStartType for name return err.
func (f *Fake) FailService(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs["svc:"+strings.ToLower(name)] = err
}

// FailCommand makes Run and Start of program return err.
func (f *Fake) FailCommand(program string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs["run:"+strings.ToLower(program)] = err
}

// SetResult sets what Run returns for program. A non-zero exit code is
// reported as *ExitError like ExecRunner does.
func (f *Fake) SetResult(program string, res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[strings.ToLower(program)] = res
}

// SetRunning marks a process image as running.
func (f *Fake) SetRunning(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[normalizeImage(name)] = true
}

// Value returns a value previously written through the Registry interface.
func (f *Fake) Value(root Root, path, name string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[valueKey(root, path, name)]
	return v, ok
}

// StartTypeOf returns a start mode previously set for name.
func (f *Fake) StartTypeOf(name string) (StartType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.startTypes[strings.ToLower(name)]
	return s, ok
}

// CallLog returns a copy of the recorded calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *Fake) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) SetDWORD(root Root, path, name string, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(`reg set %s\%s\%s=%d`, root, path, name, value)
	if err := f.errs["reg:"+valueKey(root, path, name)]; err != nil {
		return err
	}
	f.values[valueKey(root, path, name)] = value
	return nil
}

func (f *Fake) SetString(root Root, path, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(`reg set %s\%s\%s=%q`, root, path, name, value)
	if err := f.errs["reg:"+valueKey(root, path, name)]; err != nil {
		return err
	}
	f.values[valueKey(root, path, name)] = value
	return nil
}

func (f *Fake) DeleteValue(root Root, path, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(`reg delete %s\%s\%s`, root, path, name)
	key := valueKey(root, path, name)
	if err := f.errs["reg:"+key]; err != nil {
		return err
	}
	if _, ok := f.values[key]; !ok {
		return fmt.Errorf(`%s\%s\%s: %w`, root, path, name, ErrNotExist)
	}
	delete(f.values, key)
	return nil
}

func (f *Fake) SetStartType(name string, start StartType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("svc %s=%s", name, start)
	if err := f.errs["svc:"+strings.ToLower(name)]; err != nil {
		return err
	}
	f.startTypes[strings.ToLower(name)] = start
	return nil
}

func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("run %s", CommandLine(name, args...))
	if err := f.errs["run:"+strings.ToLower(name)]; err != nil {
		return Result{ExitCode: -1}, err
	}
	res := f.results[strings.ToLower(name)]
	if res.ExitCode != 0 {
		return res, &ExitError{Command: CommandLine(name, args...), Code: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

func (f *Fake) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start %s", CommandLine(name, args...))
	return f.errs["run:"+strings.ToLower(name)]
}

func (f *Fake) OSVersion() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Version, nil
}

func (f *Fake) IsPortable() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Portable, nil
}

func (f *Fake) ProcessRunning(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[normalizeImage(name)], nil
}
