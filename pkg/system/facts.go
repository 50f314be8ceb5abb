package system

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// HostFacts answers Facts queries from the live machine.
type HostFacts struct{}

// ProcessRunning reports whether a process with the given image name exists.
// Matching is case-insensitive and ignores a missing ".exe" suffix.
func (HostFacts) ProcessRunning(name string) (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	want := normalizeImage(name)
	for _, proc := range procs {
		procName, err := proc.Name()
		if err != nil {
			continue
		}
		if normalizeImage(procName) == want {
			return true, nil
		}
	}
	return false, nil
}

func normalizeImage(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}

// Summary returns a few host properties for the log header.
func Summary() map[string]interface{} {
	info, err := host.Info()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return map[string]interface{}{
		"hostname":         info.Hostname,
		"platform":         info.Platform,
		"platform_version": info.PlatformVersion,
		"kernel_arch":      info.KernelArch,
		"uptime_seconds":   info.Uptime,
	}
}

// VersionSatisfies reports whether the OS version reported by facts meets
// constraint, e.g. ">= 10.0.22000".
func VersionSatisfies(facts Facts, constraint string) (bool, string, error) {
	c, err := version.NewConstraint(constraint)
	if err != nil {
		return false, "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	raw, err := facts.OSVersion()
	if err != nil {
		return false, "", err
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return false, raw, fmt.Errorf("invalid OS version %q: %w", raw, err)
	}
	return c.Check(v), raw, nil
}
