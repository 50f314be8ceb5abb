//go:build windows

package config

import (
	"fmt"
	"log"
	"strconv"

	"golang.org/x/sys/windows/registry"
)

// loadPolicy loads configuration values from a policy key under HKLM.
func loadPolicy(registryPath string, config *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		if err == registry.ErrNotExist {
			return ErrNoPolicy
		}
		return fmt.Errorf("failed to open policy registry key %s: %w", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "LogPath", &config.LogPath)
	loadStringFromRegistry(key, "LogLevel", &config.LogLevel)
	loadStringFromRegistry(key, "WingetPath", &config.WingetPath)
	loadStringFromRegistry(key, "PowerShellPath", &config.PowerShellPath)
	loadStringFromRegistry(key, "RestorePointDescription", &config.RestorePointDescription)
	loadStringFromRegistry(key, "StatusAddress", &config.StatusAddress)

	loadIntFromRegistry(key, "CommandTimeoutMinutes", &config.CommandTimeoutMinutes)

	loadBoolFromRegistry(key, "Debug", &config.Debug)
	loadBoolFromRegistry(key, "Verbose", &config.Verbose)

	return nil
}

// loadStringFromRegistry loads a string value from registry if it exists.
func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
		log.Printf("Policy: Loaded %s = %s", valueName, val)
	}
}

// loadBoolFromRegistry loads a boolean value from registry if it exists.
// Accepts "true"/"false", "1"/"0" and DWORD 1/0.
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			log.Printf("Policy: Loaded %s = %t", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
		log.Printf("Policy: Loaded %s = %t", valueName, val != 0)
	}
}

// loadIntFromRegistry loads an integer value from registry if it exists.
func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			log.Printf("Policy: Loaded %s = %d", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
		log.Printf("Policy: Loaded %s = %d", valueName, int(val))
	}
}
