//go:build windows

package pathenv

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// pathValueName is the user PATH value under HKCU\Environment.
const pathValueName = "Path"

// RegistryStore persists the user PATH in the per-user registry hive.
// Writing it affects future sessions only; Windows broadcasts the change
// to new processes, never to already-running ones.
type RegistryStore struct{}

// ForApp returns the platform store. The per-app config directory is
// unused on Windows: there is a single user PATH value.
func ForApp(_ string) (Store, error) {
	return &RegistryStore{}, nil
}

// ReadCurrent implements Store. An absent value reads as empty.
func (s *RegistryStore) ReadCurrent() (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, "Environment", registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open HKCU\\Environment: %w", err)
	}

	defer func() {
		_ = key.Close()
	}()

	value, _, err := key.GetStringValue(pathValueName)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("read user Path: %w", err)
	}

	return value, nil
}

// WriteNew implements Store. REG_EXPAND_SZ keeps %VAR% references in
// pre-existing segments expandable.
func (s *RegistryStore) WriteNew(value string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, "Environment", registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKCU\\Environment: %w", err)
	}

	defer func() {
		_ = key.Close()
	}()

	if err = key.SetExpandStringValue(pathValueName, value); err != nil {
		return fmt.Errorf("write user Path: %w", err)
	}

	return nil
}

// Separator implements Store.
func (s *RegistryStore) Separator() string {
	return ";"
}
