//go:build !windows

package system

// OSVersion is only available through WMI.
func (HostFacts) OSVersion() (string, error) {
	return "", ErrUnsupported
}

// IsPortable is only available through WMI.
func (HostFacts) IsPortable() (bool, error) {
	return false, ErrUnsupported
}

type unsupportedRegistry struct{}

func (unsupportedRegistry) SetDWORD(Root, string, string, uint32) error  { return ErrUnsupported }
func (unsupportedRegistry) SetString(Root, string, string, string) error { return ErrUnsupported }
func (unsupportedRegistry) DeleteValue(Root, string, string) error       { return ErrUnsupported }

type unsupportedServices struct{}

func (unsupportedServices) SetStartType(string, StartType) error { return ErrUnsupported }

// NewHost returns a host whose registry and service primitives fail with
// ErrUnsupported. Commands and process queries still work.
func NewHost(runner Runner) Host {
	return Host{
		Registry: unsupportedRegistry{},
		Services: unsupportedServices{},
		Runner:   runner,
		Facts:    HostFacts{},
	}
}
