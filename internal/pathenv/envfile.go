package pathenv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envFileName is the shell snippet holding the persisted PATH prefix.
const envFileName = "env"

// exportPrefix and exportSuffix frame the stored segments inside the env file.
const (
	exportPrefix = `export PATH="`
	exportSuffix = `:$PATH"`
)

// EnvFileStore persists the PATH prefix as a sourceable shell snippet in
// the per-app config directory. Shell profiles source the snippet, so
// rewriting it updates every future session.
type EnvFileStore struct {
	// path is the env file location.
	path string
}

// NewEnvFileStore returns a store writing the env snippet at the given path.
func NewEnvFileStore(path string) *EnvFileStore {
	return &EnvFileStore{path: path}
}

// EnvFilePath returns the file backing this store, for profile hookup.
func (s *EnvFileStore) EnvFilePath() string {
	return s.path
}

// ReadCurrent implements Store. A missing env file reads as empty.
func (s *EnvFileStore) ReadCurrent() (string, error) {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", err
	}

	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, exportPrefix) && strings.HasSuffix(line, exportSuffix) {
			return strings.TrimSuffix(strings.TrimPrefix(line, exportPrefix), exportSuffix), nil
		}
	}

	return "", nil
}

// WriteNew implements Store, rewriting the whole snippet.
func (s *EnvFileStore) WriteNew(value string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("# Added automatically during installation. Prepends install directories to PATH.\n")
	b.WriteString(exportPrefix + value + exportSuffix + "\n")

	return os.WriteFile(s.path, []byte(b.String()), 0o644) //nolint:gosec // Sourced by the user's shell.
}

// Separator implements Store.
func (s *EnvFileStore) Separator() string {
	return ":"
}

// profileCandidates are the shell startup files that should source the env
// snippet. Only files that already exist are touched, except .profile
// which is created when none exist at all.
func profileCandidates(home string) []string {
	return []string{
		filepath.Join(home, ".profile"),
		filepath.Join(home, ".bashrc"),
		filepath.Join(home, ".bash_profile"),
		filepath.Join(home, ".zshrc"),
	}
}

// EnsureProfilesSource appends a source line for the env snippet to the
// user's existing shell profiles, once per file. Returns the profiles
// that were modified.
func EnsureProfilesSource(home, envFilePath string) ([]string, error) {
	sourceLine := fmt.Sprintf(`. "%s"`, envFilePath)

	var targets []string

	for _, profile := range profileCandidates(home) {
		if _, err := os.Stat(profile); err == nil {
			targets = append(targets, profile)
		}
	}

	// No profile at all: create .profile so login shells pick the snippet up.
	if len(targets) == 0 {
		targets = []string{profileCandidates(home)[0]}
	}

	var modified []string

	for _, profile := range targets {
		contents, err := os.ReadFile(filepath.Clean(profile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return modified, fmt.Errorf("read profile %s: %w", profile, err)
		}

		if containsLine(string(contents), sourceLine) {
			continue
		}

		if err = appendLine(profile, sourceLine); err != nil {
			return modified, err
		}

		modified = append(modified, profile)
	}

	return modified, nil
}

// containsLine reports whether text contains the exact line.
func containsLine(text, line string) bool {
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}

	return false
}

// appendLine appends a line to the file, creating it if needed.
func appendLine(path, line string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // Shell profile.
	if err != nil {
		return fmt.Errorf("open profile %s: %w", path, err)
	}

	if _, err = f.WriteString("\n" + line + "\n"); err != nil {
		_ = f.Close()

		return fmt.Errorf("append profile %s: %w", path, err)
	}

	return f.Close()
}
