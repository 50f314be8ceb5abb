//go:build windows

package system

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type win32OperatingSystem struct {
	Caption string
	Version string
}

type win32SystemEnclosure struct {
	ChassisTypes []uint16
}

// Chassis types reported by Win32_SystemEnclosure that identify portable machines.
var portableChassis = map[uint16]bool{
	8: true, 9: true, 10: true, 14: true, 18: true, 21: true, 30: true, 31: true, 32: true,
}

// OSVersion returns the kernel version string such as "10.0.22631".
func (HostFacts) OSVersion() (string, error) {
	var systems []win32OperatingSystem
	if err := wmi.Query("SELECT Caption, Version FROM Win32_OperatingSystem", &systems); err != nil {
		return "", fmt.Errorf("querying Win32_OperatingSystem: %w", err)
	}
	if len(systems) == 0 {
		return "", fmt.Errorf("no Win32_OperatingSystem instance")
	}
	return systems[0].Version, nil
}

// IsPortable reports whether any enclosure chassis type is a laptop-class one.
func (HostFacts) IsPortable() (bool, error) {
	var enclosures []win32SystemEnclosure
	if err := wmi.Query("SELECT ChassisTypes FROM Win32_SystemEnclosure", &enclosures); err != nil {
		return false, fmt.Errorf("querying Win32_SystemEnclosure: %w", err)
	}
	for _, enc := range enclosures {
		for _, t := range enc.ChassisTypes {
			if portableChassis[t] {
				return true, nil
			}
		}
	}
	return false, nil
}

// NewHost returns the live Windows primitives, with commands bounded by runner.
func NewHost(runner Runner) Host {
	return Host{
		Registry: WindowsRegistry{},
		Services: WindowsServices{},
		Runner:   runner,
		Facts:    HostFacts{},
	}
}
