package pathenv

import (
	"fmt"
	"strings"
)

// Store is the persisted PATH-equivalent backend capability.
type Store interface {
	// ReadCurrent returns the stored value; an absent store reads as "".
	ReadCurrent() (string, error)
	// WriteNew replaces the stored value.
	WriteNew(value string) error
	// Separator is the delimiter between path segments ";" or ":".
	Separator() string
}

// EnsureOnPath makes dir part of the persisted PATH store. It reports
// true when the store was modified and false when dir was already
// present. Presence requires an exact full-segment match: /a/b never
// matches a stored /a/bb. New directories are prepended so they take
// priority over same-named binaries elsewhere on PATH.
func EnsureOnPath(store Store, dir string) (bool, error) {
	current, err := store.ReadCurrent()
	if err != nil {
		return false, fmt.Errorf("read path store: %w", err)
	}

	if containsSegment(current, dir, store.Separator()) {
		return false, nil
	}

	updated := dir
	if current != "" {
		updated = dir + store.Separator() + current
	}

	if err = store.WriteNew(updated); err != nil {
		return false, fmt.Errorf("write path store: %w", err)
	}

	return true, nil
}

// containsSegment reports whether value, split on sep, contains dir as a
// complete segment.
func containsSegment(value, dir, sep string) bool {
	if value == "" {
		return false
	}

	for _, segment := range strings.Split(value, sep) {
		if segment == dir {
			return true
		}
	}

	return false
}
