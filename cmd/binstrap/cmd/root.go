package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/binstrap/binstrap/internal/config"
	"github.com/binstrap/binstrap/internal/logger"
	"github.com/binstrap/binstrap/internal/manifest"
	"github.com/binstrap/binstrap/internal/service/install"
	"github.com/binstrap/binstrap/internal/version"
)

var (
	// settingsPath to the installer settings YAML file.
	settingsPath string

	// manifestPath to the platform manifest JSON file.
	manifestPath string

	// baseURL overrides the artifact base URL from the settings file.
	baseURL string

	// installDir forces the install directory, bypassing strategy resolution.
	installDir string

	// noModifyPath leaves the persisted PATH untouched.
	noModifyPath bool

	// logLevel controls logging verbosity.
	logLevel string

	// rootCmd represents the base command that runs the full install.
	rootCmd = &cobra.Command{
		Use:   "binstrap",
		Short: "Install the application for the local platform",
		Long: "Matches the local platform against the release manifest, " +
			"downloads and unpacks the matching artifact, installs the binaries " +
			"and adds the install directory to PATH for future sessions.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &install.Options{
				SettingsPath: settingsPath,
				ManifestPath: manifestPath,
				BaseURL:      baseURL,
				InstallDir:   installDir,
				NoModifyPath: noModifyPath,
			}

			return install.Run(ctx, options)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the binstrap CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&settingsPath, "config", "c",
		config.DefaultSettingsFilename, "path to installer settings file")
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m",
		manifest.DefaultManifestFilename, "path to platform manifest file")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "",
		"override the artifact download base URL")
	rootCmd.Flags().StringVar(&installDir, "install-dir", "",
		"install into this directory instead of resolving one")
	rootCmd.Flags().BoolVar(&noModifyPath, "no-modify-path", false,
		"do not modify PATH for future sessions")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info",
		"logging level (debug, info, warn, error)")
}
