package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// stage writes a fake binary into a temp work area and returns its path.
func stage(t *testing.T, dir, name string, body []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, body, 0o755))

	return path
}

// TestInstallPlacesAndCleansSources verifies binaries land in the
// destination with the staged sources removed immediately.
func TestInstallPlacesAndCleansSources(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	dest := filepath.Join(t.TempDir(), "nested", "bin")

	appPath := stage(t, work, "app", []byte("app-bytes"))
	helperPath := stage(t, work, "helper", []byte("helper-bytes"))

	installed, err := Install(context.Background(), []string{appPath, helperPath}, dest, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"app", "helper"}, installed)

	body, err := os.ReadFile(filepath.Join(dest, "app"))
	require.NoError(t, err)
	require.Equal(t, []byte("app-bytes"), body)

	info, err := os.Stat(filepath.Join(dest, "app"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Sources are gone from the work area.
	_, err = os.Stat(appPath)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(helperPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstallAliasesAreHardLinks verifies aliases share the inode with
// their target, so updating the target's bytes is observable through the
// alias.
func TestInstallAliasesAreHardLinks(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	dest := t.TempDir()
	appPath := stage(t, work, "app", []byte("v1"))

	_, err := Install(context.Background(), []string{appPath},
		dest, map[string][]string{"app": {"app2", "app3"}})
	require.NoError(t, err)

	target, err := os.Stat(filepath.Join(dest, "app"))
	require.NoError(t, err)

	alias, err := os.Stat(filepath.Join(dest, "app2"))
	require.NoError(t, err)
	require.True(t, os.SameFile(target, alias))

	// Rewriting the target in place is visible through the alias.
	f, err := os.OpenFile(filepath.Join(dest, "app"), os.O_WRONLY|os.O_TRUNC, 0o755)
	require.NoError(t, err)
	_, err = f.Write([]byte("v2"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	body, err := os.ReadFile(filepath.Join(dest, "app3"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), body)
}

// TestInstallOverwritesExisting verifies a re-run against a populated
// destination succeeds and replaces both binaries and aliases.
func TestInstallOverwritesExisting(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	aliases := map[string][]string{"app": {"app2"}}

	work := t.TempDir()
	first := stage(t, work, "app", []byte("v1"))
	_, err := Install(context.Background(), []string{first}, dest, aliases)
	require.NoError(t, err)

	// Second run with different content against pre-existing files.
	second := stage(t, work, "app", []byte("v2"))
	_, err = Install(context.Background(), []string{second}, dest, aliases)
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(dest, "app2"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), body)

	// No .old leftovers from the overwrite-in-place swap.
	for _, leftover := range []string{"app.old", ".app.old"} {
		_, err = os.Stat(filepath.Join(dest, leftover))
		require.ErrorIs(t, err, os.ErrNotExist, leftover)
	}
}

// TestInstallAliasOverDirectoryFails verifies an un-removable path at the
// alias location surfaces as ErrAliasCreationFailed.
func TestInstallAliasOverDirectoryFails(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	dest := t.TempDir()
	appPath := stage(t, work, "app", []byte("v1"))

	// A non-empty directory where the alias should go cannot be replaced.
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "app2", "sub"), 0o755))

	_, err := Install(context.Background(), []string{appPath},
		dest, map[string][]string{"app": {"app2"}})
	require.ErrorIs(t, err, ErrAliasCreationFailed)
}
