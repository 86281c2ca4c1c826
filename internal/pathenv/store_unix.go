//go:build !windows

package pathenv

import "path/filepath"

// ForApp returns the platform store for the given per-app config
// directory: on POSIX systems, the sourceable env snippet inside it.
func ForApp(configDir string) (Store, error) {
	return NewEnvFileStore(filepath.Join(configDir, envFileName)), nil
}
