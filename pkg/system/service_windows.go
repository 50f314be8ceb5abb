//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/mgr"
)

// WindowsServices changes start modes through the service control manager.
type WindowsServices struct{}

func scmStartType(start StartType) (uint32, error) {
	switch start {
	case StartManual:
		return mgr.StartManual, nil
	case StartDisabled:
		return mgr.StartDisabled, nil
	case StartAutomatic:
		return mgr.StartAutomatic, nil
	}
	return 0, fmt.Errorf("unsupported start type %v", start)
}

// SetStartType updates the configured start mode of a single service.
func (WindowsServices) SetStartType(name string, start StartType) error {
	want, err := scmStartType(start)
	if err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return fmt.Errorf("service %s: %w", name, ErrNotExist)
		}
		return fmt.Errorf("could not access service %s: %w", name, err)
	}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return fmt.Errorf("reading configuration of service %s: %w", name, err)
	}
	if cfg.StartType == want {
		return nil
	}
	cfg.StartType = want
	if err := s.UpdateConfig(cfg); err != nil {
		return fmt.Errorf("setting service %s to %s: %w", name, start, err)
	}
	return nil
}
