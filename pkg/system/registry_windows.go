//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// WindowsRegistry writes through the Win32 registry API.
type WindowsRegistry struct{}

func hive(root Root) (registry.Key, error) {
	switch root {
	case LocalMachine:
		return registry.LOCAL_MACHINE, nil
	case CurrentUser:
		return registry.CURRENT_USER, nil
	}
	return 0, fmt.Errorf("unsupported registry root %v", root)
}

func (WindowsRegistry) create(root Root, path string) (registry.Key, error) {
	h, err := hive(root)
	if err != nil {
		return 0, err
	}
	k, _, err := registry.CreateKey(h, path, registry.SET_VALUE)
	if err != nil {
		return 0, fmt.Errorf("opening %s\\%s: %w", root, path, err)
	}
	return k, nil
}

// SetDWORD writes a REG_DWORD value, creating the key if needed.
func (r WindowsRegistry) SetDWORD(root Root, path, name string, value uint32) error {
	k, err := r.create(root, path)
	if err != nil {
		return err
	}
	defer k.Close()
	if err := k.SetDWordValue(name, value); err != nil {
		return fmt.Errorf("setting %s\\%s\\%s: %w", root, path, name, err)
	}
	return nil
}

// SetString writes a REG_SZ value, creating the key if needed.
func (r WindowsRegistry) SetString(root Root, path, name, value string) error {
	k, err := r.create(root, path)
	if err != nil {
		return err
	}
	defer k.Close()
	if err := k.SetStringValue(name, value); err != nil {
		return fmt.Errorf("setting %s\\%s\\%s: %w", root, path, name, err)
	}
	return nil
}

// DeleteValue removes a value. A missing key or value wraps ErrNotExist.
func (WindowsRegistry) DeleteValue(root Root, path, name string) error {
	h, err := hive(root)
	if err != nil {
		return err
	}
	k, err := registry.OpenKey(h, path, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("%s\\%s: %w", root, path, ErrNotExist)
		}
		return fmt.Errorf("opening %s\\%s: %w", root, path, err)
	}
	defer k.Close()
	if err := k.DeleteValue(name); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("%s\\%s\\%s: %w", root, path, name, ErrNotExist)
		}
		return fmt.Errorf("deleting %s\\%s\\%s: %w", root, path, name, err)
	}
	return nil
}
