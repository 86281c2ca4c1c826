package installpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Environ is a point-in-time snapshot of environment lookups.
// Strategies are pure functions over it, which keeps resolution testable
// and makes the whole chain a function of declared inputs.
type Environ func(key string) (string, bool)

// OSEnviron returns the live process environment as an Environ.
func OSEnviron() Environ {
	return os.LookupEnv
}

// errEnvUnset explains why a strategy was skipped.
var errEnvUnset = errors.New("environment value not set")

// Strategy derives a candidate install directory from environment state.
// Resolve returns the reason for skipping as an error; new strategy kinds
// plug in without touching the resolution scan.
type Strategy interface {
	Resolve(env Environ) (string, error)
	String() string
}

// binSubdir is appended by the cargo-home style layout.
const binSubdir = "bin"

// CargoHomeLike installs into `<env primary>/bin`, falling back to
// `$HOME/<fallback>/bin` when the primary variable is unset.
// This mirrors the layout cargo itself uses for CARGO_HOME.
type CargoHomeLike struct {
	// EnvKey is the primary environment variable, e.g. CARGO_HOME.
	EnvKey string
	// HomeFallback is the home subdirectory used when EnvKey is unset, e.g. .cargo.
	HomeFallback string
}

// Resolve implements Strategy.
func (s CargoHomeLike) Resolve(env Environ) (string, error) {
	if root, ok := env(s.EnvKey); ok && root != "" {
		return filepath.Join(root, binSubdir), nil
	}

	home, err := homeDir(env)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, s.HomeFallback, binSubdir), nil
}

func (s CargoHomeLike) String() string {
	return fmt.Sprintf("$%s or $HOME/%s, plus %s", s.EnvKey, s.HomeFallback, binSubdir)
}

// HomeSubdir installs into a fixed subdirectory of the user's home.
type HomeSubdir struct {
	// Subdir is the path appended to $HOME, e.g. ".myapp/bin".
	Subdir string
}

// Resolve implements Strategy.
func (s HomeSubdir) Resolve(env Environ) (string, error) {
	home, err := homeDir(env)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, s.Subdir), nil
}

func (s HomeSubdir) String() string {
	return "$HOME/" + s.Subdir
}

// EnvSubdir installs into a subdirectory of an arbitrary environment variable.
type EnvSubdir struct {
	// Key is the environment variable holding the root directory.
	Key string
	// Subdir is the path appended to it.
	Subdir string
}

// Resolve implements Strategy.
func (s EnvSubdir) Resolve(env Environ) (string, error) {
	root, ok := env(s.Key)
	if !ok || root == "" {
		return "", fmt.Errorf("$%s: %w", s.Key, errEnvUnset)
	}

	return filepath.Join(root, s.Subdir), nil
}

func (s EnvSubdir) String() string {
	return fmt.Sprintf("$%s/%s", s.Key, s.Subdir)
}

// homeDir resolves the user home from the environment snapshot.
// USERPROFILE covers Windows hosts where HOME is typically absent.
func homeDir(env Environ) (string, error) {
	if home, ok := env("HOME"); ok && home != "" {
		return home, nil
	}

	if home, ok := env("USERPROFILE"); ok && home != "" {
		return home, nil
	}

	return "", fmt.Errorf("$HOME: %w", errEnvUnset)
}
