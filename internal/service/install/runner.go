package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/binstrap/binstrap/internal/archive"
	"github.com/binstrap/binstrap/internal/config"
	"github.com/binstrap/binstrap/internal/engine"
	"github.com/binstrap/binstrap/internal/fetch"
	"github.com/binstrap/binstrap/internal/installpath"
	"github.com/binstrap/binstrap/internal/logger"
	"github.com/binstrap/binstrap/internal/manifest"
	"github.com/binstrap/binstrap/internal/pathenv"
	"github.com/binstrap/binstrap/internal/platform"
	"github.com/binstrap/binstrap/internal/receipt"
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// SettingsPath is the optional path to the settings YAML file.
	SettingsPath string
	// ManifestPath is the optional path to the platform manifest JSON file.
	ManifestPath string
	// BaseURL overrides the settings' artifact base URL.
	BaseURL string
	// InstallDir forces the install directory, bypassing the strategy chain.
	InstallDir string
	// NoModifyPath suppresses persisted PATH modification.
	NoModifyPath bool
}

// runner holds the immutable configuration and helpers for one install
// execution. It is intentionally unexported; call Run(ctx, Options).
type runner struct {
	// settings are the generation-time installer settings.
	settings *config.Settings

	// man is the platform manifest, a read-only input.
	man manifest.Manifest

	// fetcher downloads artifacts into temp work directories.
	fetcher *fetch.Fetcher

	// env is the environment snapshot used by install-path resolution.
	env installpath.Environ

	// baseURL is the effective artifact base URL.
	baseURL string

	// installDir is the effective install dir override, may be empty.
	installDir string

	// skipPath suppresses persisted PATH registration.
	skipPath bool
}

// Run executes the install pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "binstrap")

	r, err := newRunner(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Installer setup failed", "error", err)
		return err
	}

	defer r.cleanup(ctx)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Install failed", "error", err)
		return err
	}

	logger.Info(ctx, "Install completed")

	return nil
}

// newRunner loads settings and manifest and freezes every run parameter
// into one immutable configuration value.
func newRunner(opts *Options) (*runner, error) {
	settings, err := config.Load(opts.SettingsPath)
	if err != nil {
		return nil, err
	}

	man, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	env := installpath.OSEnviron()

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = settings.BaseURL
	}

	// The override env var is consulted before any strategy; an explicit
	// flag still beats it.
	installDir := opts.InstallDir
	if installDir == "" {
		installDir, _ = env(settings.InstallDirEnvVar())
	}

	skipPath := opts.NoModifyPath
	if !skipPath {
		if v, ok := env(settings.NoModifyPathEnvVar()); ok && v != "" && v != "0" {
			skipPath = true
		}
	}

	return &runner{
		settings:   settings,
		man:        man,
		fetcher:    fetch.New(),
		env:        env,
		baseURL:    baseURL,
		installDir: installDir,
		skipPath:   skipPath,
	}, nil
}

// run executes the pipeline for this runner instance:
// 1) Match the local platform against the manifest.
// 2) Fetch and unpack the platform's artifact.
// 3) Resolve the install directory.
// 4) Place binaries and aliases.
// 5) Install the companion updater when published.
// 6) Persist the receipt.
// 7) Register the directory on the persisted PATH.
func (r *runner) run(ctx context.Context) error {
	triple, err := platform.Resolve(r.man.Keys())
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Platform matched", "triple", triple)

	art := r.man[triple]

	logger.InfoKV(ctx, "Fetching artifact", "artifact", art.ArtifactID, "base_url", r.baseURL)

	archivePath, err := r.fetcher.Fetch(ctx, r.baseURL, art.ArtifactID)
	if err != nil {
		return err
	}

	workDir, err := archive.Extract(archivePath, art.Format)
	if err != nil {
		return err
	}

	destDir, err := installpath.Resolve(r.settings.BuildStrategies(), r.installDir, r.env)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installing", "dir", destDir)

	binaryPaths, err := stagedBinaries(workDir, art.Binaries)
	if err != nil {
		return err
	}

	installed, err := engine.Install(ctx, binaryPaths, destDir, art.Aliases)
	if err != nil {
		return err
	}

	if art.Updater != nil {
		if err = r.installUpdater(ctx, art.Updater, destDir); err != nil {
			return err
		}
	}

	rcpt := receipt.Build(r.settings.AppName, r.settings.AppVersion, installed, art.Aliases, destDir)

	receiptPath, err := receipt.Persist(rcpt)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Receipt written", "path", receiptPath)

	if r.skipPath {
		logger.Info(ctx, "PATH modification suppressed")
		return nil
	}

	return r.registerPath(ctx, destDir)
}

// stagedBinaries maps the declared binary names onto extracted file paths,
// failing when the archive is missing one.
func stagedBinaries(workDir string, names []string) ([]string, error) {
	paths := make([]string, 0, len(names))

	for _, name := range names {
		path := filepath.Join(workDir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: binary %q not found in archive: %w",
				archive.ErrExtractionFailed, name, err)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// installUpdater fetches the companion self-update binary and places it
// next to the installed binaries under its deterministic name.
func (r *runner) installUpdater(ctx context.Context, up *manifest.UpdaterArtifact, destDir string) error {
	name := up.Binary
	if name == "" {
		name = r.settings.AppName + "-update" + platform.ExeSuffix()
	}

	logger.InfoKV(ctx, "Installing updater", "artifact", up.ArtifactID, "name", name)

	localPath, err := r.fetcher.FetchAs(ctx, r.baseURL, up.ArtifactID, name)
	if err != nil {
		return err
	}

	_, err = engine.Install(ctx, []string{localPath}, destDir, nil)

	return err
}

// registerPath adds destDir to the persisted PATH store and, on POSIX
// systems, hooks the env snippet into the user's shell profiles.
func (r *runner) registerPath(ctx context.Context, destDir string) error {
	configDir, err := receipt.DefaultDir(r.settings.AppName)
	if err != nil {
		return err
	}

	store, err := pathenv.ForApp(configDir)
	if err != nil {
		return err
	}

	modified, err := pathenv.EnsureOnPath(store, destDir)
	if err != nil {
		return err
	}

	if !modified {
		logger.InfoKV(ctx, "PATH already contains install dir", "dir", destDir)
		return nil
	}

	logger.InfoKV(ctx, "PATH updated for future sessions", "dir", destDir)

	if envStore, ok := store.(*pathenv.EnvFileStore); ok {
		if home, found := r.env("HOME"); found && home != "" {
			profiles, profileErr := pathenv.EnsureProfilesSource(home, envStore.EnvFilePath())
			if profileErr != nil {
				return profileErr
			}

			for _, profile := range profiles {
				logger.InfoKV(ctx, "Shell profile updated", "profile", profile)
			}
		}
	}

	logger.Info(ctx, "Restart your shell or source the env file to pick up PATH changes")

	return nil
}

// cleanup removes every temp directory allocated by the fetcher.
func (r *runner) cleanup(ctx context.Context) {
	for _, dir := range r.fetcher.WorkDirs() {
		if err := os.RemoveAll(dir); err != nil {
			logger.WarnKV(ctx, "Could not remove temp dir", "dir", dir, "error", err)
		}
	}
}
