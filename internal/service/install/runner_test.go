package install

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binstrap/binstrap/internal/archive"
	"github.com/binstrap/binstrap/internal/platform"
)

const testAppName = "toolbelt"

// testWorld is the simulated user environment for one test: isolated HOME,
// config dir and cargo home, plus an artifact server with a request counter.
type testWorld struct {
	home      string
	configDir string
	cargoHome string
	server    *httptest.Server
	requests  atomic.Int64
}

// newTestWorld isolates the process environment and serves the given
// artifacts (artifact id to payload) over HTTP.
func newTestWorld(t *testing.T, artifacts map[string][]byte) *testWorld {
	t.Helper()

	w := &testWorld{
		home:      t.TempDir(),
		configDir: t.TempDir(),
		cargoHome: t.TempDir(),
	}

	t.Setenv("HOME", w.home)
	t.Setenv("XDG_CONFIG_HOME", w.configDir)
	t.Setenv("CARGO_HOME", w.cargoHome)

	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		w.requests.Add(1)

		payload, ok := artifacts[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			rw.WriteHeader(http.StatusNotFound)
			return
		}

		_, _ = rw.Write(payload)
	}))
	t.Cleanup(w.server.Close)

	return w
}

// writeSettings writes a minimal settings file pointing at the test server
// and relying on the default strategy chain.
func (w *testWorld) writeSettings(t *testing.T) string {
	t.Helper()

	contents := fmt.Sprintf("app_name: %s\napp_version: 1.2.3\nbase_url: %s\n",
		testAppName, w.server.URL)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

// writeManifest writes a manifest JSON keyed by the local platform triple.
func writeManifest(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

// zipArchive builds an in-memory zip with the given name-to-content files.
func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, content := range files {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		header.SetMode(0o755)

		fw, err := zw.CreateHeader(header)
		require.NoError(t, err)

		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// singleBinaryManifest covers the common case: one binary, one alias,
// published for the local platform only.
func singleBinaryManifest(artifactID string) string {
	return fmt.Sprintf(`{
		%q: {
			"artifact_id": %q,
			"binaries": ["tool"],
			"archive_format": "zip",
			"aliases": {"tool": ["t"]}
		}
	}`, platform.Detected(), artifactID)
}

func TestRunEndToEnd(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
	}

	require.NoError(t, Run(context.Background(), opts))
	require.EqualValues(t, 1, world.requests.Load(), "exactly one artifact fetch expected")

	binDir := filepath.Join(world.cargoHome, "bin")

	installed, err := os.ReadFile(filepath.Join(binDir, "tool"))
	require.NoError(t, err)
	require.Equal(t, "tool payload", string(installed))

	info, err := os.Stat(filepath.Join(binDir, "tool"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	aliasInfo, err := os.Stat(filepath.Join(binDir, "t"))
	require.NoError(t, err)
	require.True(t, os.SameFile(info, aliasInfo))

	receiptData, err := os.ReadFile(
		filepath.Join(world.configDir, testAppName, testAppName+"-receipt.json"))
	require.NoError(t, err)

	var receipt struct {
		AppName       string `json:"app_name"`
		Version       string `json:"version"`
		InstallPrefix string `json:"install_prefix"`
	}
	require.NoError(t, json.Unmarshal(receiptData, &receipt))
	require.Equal(t, testAppName, receipt.AppName)
	require.Equal(t, "1.2.3", receipt.Version)
	require.Equal(t, binDir, receipt.InstallPrefix)

	envFile, err := os.ReadFile(filepath.Join(world.configDir, testAppName, "env"))
	require.NoError(t, err)
	require.Contains(t, string(envFile), binDir)

	profile, err := os.ReadFile(filepath.Join(world.home, ".profile"))
	require.NoError(t, err)
	require.Contains(t, string(profile), filepath.Join(world.configDir, testAppName, "env"))
}

func TestRunIsIdempotent(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
	}

	require.NoError(t, Run(context.Background(), opts))
	require.NoError(t, Run(context.Background(), opts))

	binDir := filepath.Join(world.cargoHome, "bin")

	envFile, err := os.ReadFile(filepath.Join(world.configDir, testAppName, "env"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(envFile), binDir))

	profile, err := os.ReadFile(filepath.Join(world.home, ".profile"))
	require.NoError(t, err)
	require.Equal(t, 1,
		strings.Count(string(profile), filepath.Join(world.configDir, testAppName, "env")))

	// No rename leftovers from the overwrite.
	entries, err := os.ReadDir(binDir)
	require.NoError(t, err)

	for _, entry := range entries {
		require.False(t, strings.HasSuffix(entry.Name(), ".old"), entry.Name())
	}
}

func TestRunUnsupportedPlatformAbortsBeforeFetch(t *testing.T) {
	world := newTestWorld(t, nil)

	manifest := `{
		"sparc64-unknown-solaris": {
			"artifact_id": "toolbelt.zip",
			"binaries": ["tool"],
			"archive_format": "zip"
		}
	}`

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, manifest),
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, platform.ErrUnsupportedPlatform)
	require.Zero(t, world.requests.Load(), "no artifact request expected")
}

func TestRunNoModifyPath(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
		NoModifyPath: true,
	}

	require.NoError(t, Run(context.Background(), opts))

	_, err := os.Stat(filepath.Join(world.configDir, testAppName, "env"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(world.home, ".profile"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunNoModifyPathViaEnv(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	t.Setenv("TOOLBELT_NO_MODIFY_PATH", "1")

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
	}

	require.NoError(t, Run(context.Background(), opts))

	_, err := os.Stat(filepath.Join(world.configDir, testAppName, "env"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunInstallDirOverride(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	override := t.TempDir()

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
		InstallDir:   override,
		NoModifyPath: true,
	}

	require.NoError(t, Run(context.Background(), opts))

	// The default chain contains the cargo-home strategy, so the override
	// gets the conventional bin subdirectory appended.
	_, err := os.Stat(filepath.Join(override, "bin", "tool"))
	require.NoError(t, err)

	// Nothing lands in the strategy-resolved location.
	_, err = os.Stat(filepath.Join(world.cargoHome, "bin", "tool"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunInstallDirOverrideViaEnv(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	override := t.TempDir()
	t.Setenv("TOOLBELT_INSTALL_DIR", override)

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
		NoModifyPath: true,
	}

	require.NoError(t, Run(context.Background(), opts))

	_, err := os.Stat(filepath.Join(override, "bin", "tool"))
	require.NoError(t, err)
}

func TestRunMissingBinaryInArchive(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"other": "not the tool"}),
	})

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
		NoModifyPath: true,
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, archive.ErrExtractionFailed)

	// The install directory must stay untouched when staging fails.
	_, err = os.Stat(filepath.Join(world.cargoHome, "bin", "tool"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunInstallsUpdater(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip":     zipArchive(t, map[string]string{"tool": "tool payload"}),
		"toolbelt-updater": []byte("updater payload"),
	})

	manifest := fmt.Sprintf(`{
		%q: {
			"artifact_id": "toolbelt.zip",
			"binaries": ["tool"],
			"archive_format": "zip",
			"updater": {"artifact_id": "toolbelt-updater"}
		}
	}`, platform.Detected())

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, manifest),
		NoModifyPath: true,
	}

	require.NoError(t, Run(context.Background(), opts))
	require.EqualValues(t, 2, world.requests.Load(), "main artifact plus updater expected")

	updaterName := testAppName + "-update" + platform.ExeSuffix()

	payload, err := os.ReadFile(filepath.Join(world.cargoHome, "bin", updaterName))
	require.NoError(t, err)
	require.Equal(t, "updater payload", string(payload))
}

func TestRunCleansUpTempDirs(t *testing.T) {
	world := newTestWorld(t, map[string][]byte{
		"toolbelt.zip": zipArchive(t, map[string]string{"tool": "tool payload"}),
	})

	opts := &Options{
		SettingsPath: world.writeSettings(t),
		ManifestPath: writeManifest(t, singleBinaryManifest("toolbelt.zip")),
		NoModifyPath: true,
	}

	r, err := newRunner(opts)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.run(ctx))

	dirs := r.fetcher.WorkDirs()
	require.NotEmpty(t, dirs)

	r.cleanup(ctx)

	for _, dir := range dirs {
		_, statErr := os.Stat(dir)
		require.ErrorIs(t, statErr, os.ErrNotExist)
	}
}
