package tweak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/tweaker/pkg/system"
)

// RegistryValue writes a REG_DWORD or REG_SZ value.
type RegistryValue struct {
	Root   system.Root
	Path   string
	Name   string // empty for the key's default value
	IsText bool
	DWord  uint32
	Text   string
}

// SetDWORD returns a step writing a REG_DWORD value.
func SetDWORD(root system.Root, path, name string, value uint32) *RegistryValue {
	return &RegistryValue{Root: root, Path: path, Name: name, DWord: value}
}

// SetString returns a step writing a REG_SZ value.
func SetString(root system.Root, path, name, value string) *RegistryValue {
	return &RegistryValue{Root: root, Path: path, Name: name, IsText: true, Text: value}
}

func valueFlag(name string) string {
	if name == "" {
		return "/ve"
	}
	return fmt.Sprintf("/v %q", name)
}

func (s *RegistryValue) Describe() string {
	if s.IsText {
		return fmt.Sprintf(`reg add "%s\%s" %s /t REG_SZ /d %q /f`, s.Root, s.Path, valueFlag(s.Name), s.Text)
	}
	return fmt.Sprintf(`reg add "%s\%s" %s /t REG_DWORD /d %d /f`, s.Root, s.Path, valueFlag(s.Name), s.DWord)
}

func (s *RegistryValue) Apply(_ context.Context, host system.Host, _ Output) error {
	if s.IsText {
		return host.Registry.SetString(s.Root, s.Path, s.Name, s.Text)
	}
	return host.Registry.SetDWORD(s.Root, s.Path, s.Name, s.DWord)
}

// RegistryDelete removes a value. A value that is already gone is success.
type RegistryDelete struct {
	Root system.Root
	Path string
	Name string
}

func (s *RegistryDelete) Describe() string {
	return fmt.Sprintf(`reg delete "%s\%s" %s /f`, s.Root, s.Path, valueFlag(s.Name))
}

func (s *RegistryDelete) Apply(_ context.Context, host system.Host, _ Output) error {
	err := host.Registry.DeleteValue(s.Root, s.Path, s.Name)
	if errors.Is(err, system.ErrNotExist) {
		return nil
	}
	return err
}

// ServiceStartup changes a service start mode.
type ServiceStartup struct {
	Name  string
	Start system.StartType
}

func (s *ServiceStartup) Describe() string {
	mode := map[system.StartType]string{
		system.StartManual:    "demand",
		system.StartDisabled:  "disabled",
		system.StartAutomatic: "auto",
	}[s.Start]
	return fmt.Sprintf(`sc config "%s" start= %s`, s.Name, mode)
}

func (s *ServiceStartup) Apply(_ context.Context, host system.Host, _ Output) error {
	return host.Services.SetStartType(s.Name, s.Start)
}

// ScheduledTask enables or disables a task through schtasks.
type ScheduledTask struct {
	Path   string
	Enable bool
}

func (s *ScheduledTask) args() []string {
	flag := "/DISABLE"
	if s.Enable {
		flag = "/ENABLE"
	}
	return []string{"/Change", "/TN", s.Path, flag}
}

func (s *ScheduledTask) Describe() string {
	return system.CommandLine("schtasks", s.args()...)
}

func (s *ScheduledTask) Apply(ctx context.Context, host system.Host, _ Output) error {
	_, err := host.Runner.Run(ctx, "schtasks", s.args()...)
	return err
}

// Command runs a program and waits for it.
type Command struct {
	Program string
	Args    []string
}

func (s *Command) Describe() string { return system.CommandLine(s.Program, s.Args...) }

func (s *Command) Apply(ctx context.Context, host system.Host, _ Output) error {
	_, err := host.Runner.Run(ctx, s.Program, s.Args...)
	return err
}

// Shell runs a script through PowerShell or cmd.exe.
type Shell struct {
	Script     string
	PowerShell bool
}

func (s *Shell) argv() (string, []string) {
	if s.PowerShell {
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", s.Script}
	}
	return "cmd", []string{"/C", s.Script}
}

func (s *Shell) Describe() string {
	if s.PowerShell {
		return "powershell -Command " + s.Script
	}
	return s.Script
}

func (s *Shell) Apply(ctx context.Context, host system.Host, _ Output) error {
	name, args := s.argv()
	_, err := host.Runner.Run(ctx, name, args...)
	return err
}

// Winget installs or uninstalls a package with winget.
type Winget struct {
	ID        string // exact package id
	Name      string // display name, used for uninstall when ID is empty
	Uninstall bool
}

func (s *Winget) args() []string {
	if s.Uninstall {
		if s.ID != "" {
			return []string{"uninstall", "--id", s.ID, "-e", "--accept-source-agreements"}
		}
		return []string{"uninstall", s.Name, "--accept-source-agreements"}
	}
	return []string{"install", "--id", s.ID, "-e", "--accept-source-agreements", "--accept-package-agreements"}
}

func (s *Winget) Describe() string { return system.CommandLine("winget", s.args()...) }

func (s *Winget) Apply(ctx context.Context, host system.Host, _ Output) error {
	_, err := host.Runner.Run(ctx, "winget", s.args()...)
	return err
}

// AppxRemove removes an Appx package for the current user.
type AppxRemove struct {
	Package string
}

func (s *AppxRemove) script() string {
	quoted := "'" + strings.ReplaceAll(s.Package, "'", "''") + "'"
	return fmt.Sprintf("Get-AppxPackage %s | Remove-AppxPackage", quoted)
}

func (s *AppxRemove) Describe() string { return "powershell -Command " + s.script() }

func (s *AppxRemove) Apply(ctx context.Context, host system.Host, out Output) error {
	return (&Shell{Script: s.script(), PowerShell: true}).Apply(ctx, host, out)
}

// Detached starts a program and does not wait for it to exit.
type Detached struct {
	Program string
	Args    []string
}

func (s *Detached) Describe() string { return "start " + system.CommandLine(s.Program, s.Args...) }

func (s *Detached) Apply(_ context.Context, host system.Host, _ Output) error {
	return host.Runner.Start(s.Program, s.Args...)
}

// PurgeDir deletes everything inside Dir, keeping Dir itself. Entries that
// are in use are left behind and reported in the returned error. An empty Dir
// means the temporary directory of the current user.
type PurgeDir struct {
	Dir string
}

func (s *PurgeDir) dir() string {
	if s.Dir == "" {
		return os.TempDir()
	}
	return os.ExpandEnv(s.Dir)
}

func (s *PurgeDir) Describe() string {
	return fmt.Sprintf(`del /q /f /s "%s"`, filepath.Join(s.dir(), "*"))
}

func (s *PurgeDir) Apply(_ context.Context, _ system.Host, out Output) error {
	dir := s.dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var failed int
	var firstErr error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	out.Info("Purged directory", "dir", dir, "removed", len(entries)-failed, "kept", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d entries in %s could not be removed: %w", failed, len(entries), dir, firstErr)
	}
	return nil
}

// Notice emits a warning for a tweak that has no automated implementation.
type Notice struct {
	Message string
}

func (s *Notice) Describe() string { return "" }

func (s *Notice) Apply(_ context.Context, _ system.Host, out Output) error {
	out.Warn(s.Message)
	return nil
}

// RunningCheck warns when a process is running, for changes that only take
// effect once it has been closed.
type RunningCheck struct {
	Process string
	Message string
}

func (s *RunningCheck) Describe() string { return "" }

func (s *RunningCheck) Apply(_ context.Context, host system.Host, out Output) error {
	running, err := host.Facts.ProcessRunning(s.Process)
	if err != nil {
		out.Info("Could not check running processes", "process", s.Process, "error", err)
		return nil
	}
	if running {
		msg := s.Message
		if msg == "" {
			msg = fmt.Sprintf("%s is running; close it for the change to take effect", s.Process)
		}
		out.Warn(msg)
	}
	return nil
}

// PortableCheck warns when the machine is not a laptop-class device.
type PortableCheck struct {
	Message string
}

func (s *PortableCheck) Describe() string { return "" }

func (s *PortableCheck) Apply(_ context.Context, host system.Host, out Output) error {
	portable, err := host.Facts.IsPortable()
	if err != nil {
		out.Info("Could not determine chassis type", "error", err)
		return nil
	}
	if !portable {
		msg := s.Message
		if msg == "" {
			msg = "This machine does not look like a laptop"
		}
		out.Warn(msg)
	}
	return nil
}
