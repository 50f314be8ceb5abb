//go:build !windows

package config

// loadPolicy has no registry to read outside Windows.
func loadPolicy(string, *Configuration) error {
	return ErrNoPolicy
}
