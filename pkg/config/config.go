// pkg/config/config.go - configuration settings for Tweaker.

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const ConfigPath = `C:\ProgramData\Tweaker\Config.yaml`

// PolicyRegistryPath is read when no Config.yaml is present (HKLM).
const PolicyRegistryPath = `SOFTWARE\Policies\Tweaker`

// ErrNoPolicy is returned when the policy key does not exist or cannot be read.
var ErrNoPolicy = errors.New("no policy configuration available")

// Configuration holds the configurable options for Tweaker in YAML format
type Configuration struct {
	LogPath                 string `yaml:"LogPath"`
	LogLevel                string `yaml:"LogLevel"`
	CommandTimeoutMinutes   int    `yaml:"CommandTimeoutMinutes"`
	WingetPath              string `yaml:"WingetPath"`
	PowerShellPath          string `yaml:"PowerShellPath"`
	RestorePointDescription string `yaml:"RestorePointDescription"`
	StatusAddress           string `yaml:"StatusAddress"` // host:port of a status listener, empty to disable
	Debug                   bool   `yaml:"Debug"`
	Verbose                 bool   `yaml:"Verbose"`
}

// GetDefaultConfig provides default configuration values in YAML format.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		LogPath:                 filepath.Join(`C:\ProgramData\Tweaker`, "logs", "tweaker.log"),
		LogLevel:                "INFO",
		CommandTimeoutMinutes:   10,
		WingetPath:              "winget",
		PowerShellPath:          "powershell",
		RestorePointDescription: "Tweaker Restore Point",
		StatusAddress:           "",
		Debug:                   false,
		Verbose:                 false,
	}
}

// CommandTimeout returns the bound applied to every external command.
func (c *Configuration) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMinutes) * time.Minute
}

// Validate checks values that would otherwise fail late, at run time.
func (c *Configuration) Validate() error {
	switch strings.ToUpper(c.LogLevel) {
	case "ERROR", "WARN", "WARNING", "INFO", "DEBUG":
	default:
		return fmt.Errorf("invalid LogLevel %q", c.LogLevel)
	}
	if c.CommandTimeoutMinutes <= 0 {
		return fmt.Errorf("CommandTimeoutMinutes must be positive, got %d", c.CommandTimeoutMinutes)
	}
	if strings.TrimSpace(c.LogPath) == "" {
		return errors.New("LogPath must not be empty")
	}
	return nil
}

// LoadConfig loads the configuration from the default YAML file.
// If the YAML file doesn't exist, it falls back to policy registry settings and
// finally to the defaults.
func LoadConfig() (*Configuration, error) {
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		log.Printf("Configuration file does not exist: %s", ConfigPath)

		config, policyErr := LoadConfigFromPolicy()
		if policyErr == nil {
			log.Printf("Loaded configuration from policy registry settings")
			return config, nil
		}
		if !errors.Is(policyErr, ErrNoPolicy) {
			log.Printf("Failed to load from policy registry: %v", policyErr)
		}
		return GetDefaultConfig(), nil
	}
	return LoadConfigFrom(ConfigPath)
}

// LoadConfigFrom reads a YAML file and overlays it on the defaults, so keys
// missing from the file keep their default values.
func LoadConfigFrom(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %s: %w", path, err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration file %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration file %s: %w", path, err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the default YAML file.
func SaveConfig(config *Configuration) error {
	return SaveConfigTo(ConfigPath, config)
}

// SaveConfigTo saves the configuration to path, creating parent directories.
func SaveConfigTo(path string, config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("serializing configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating configuration directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing configuration file: %w", err)
	}
	return nil
}

// LoadConfigFromPolicy starts from the defaults and applies every value found
// under PolicyRegistryPath.
func LoadConfigFromPolicy() (*Configuration, error) {
	config := GetDefaultConfig()
	if err := loadPolicy(PolicyRegistryPath, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("policy configuration: %w", err)
	}
	return config, nil
}
