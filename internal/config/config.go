package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/binstrap/binstrap/internal/installpath"
)

const (
	// DefaultSettingsFilename is the settings file placed next to a
	// generated installer.
	DefaultSettingsFilename = "binstrap-settings.yaml"

	// Strategy kinds accepted in the settings file.
	StrategyCargoHome = "cargo-home"
	StrategyHomeSub   = "home-subdir"
	StrategyEnvSub    = "env-subdir"
)

var (
	// errAppNameRequired is returned when the settings omit the app name.
	errAppNameRequired = errors.New("app name must be provided")
	// errBaseURLRequired is returned when the settings omit the artifact base URL.
	errBaseURLRequired = errors.New("artifact base URL must be provided")
	// errUnknownStrategy is returned for an unrecognized strategy kind.
	errUnknownStrategy = errors.New("unknown install path strategy kind")
	// errStrategyEnvKey is returned when a strategy kind needs an env key it lacks.
	errStrategyEnvKey = errors.New("strategy requires an env_key")
	// errStrategySubdir is returned when a strategy kind needs a subdir it lacks.
	errStrategySubdir = errors.New("strategy requires a subdir")
)

// StrategySpec is the declarative YAML form of one install-path strategy.
type StrategySpec struct {
	// Kind selects the strategy variant: cargo-home, home-subdir or env-subdir.
	Kind string `yaml:"kind"`
	// EnvKey names the environment variable consulted by cargo-home and env-subdir.
	EnvKey string `yaml:"env_key,omitempty"`
	// Subdir is the path appended by home-subdir and env-subdir, or the
	// home fallback directory for cargo-home.
	Subdir string `yaml:"subdir,omitempty"`
}

// Settings holds the generation-time parameters of one installer build.
type Settings struct {
	// AppName is the application being installed.
	AppName string `yaml:"app_name"`
	// AppVersion is the release version the manifest was generated for.
	AppVersion string `yaml:"app_version"`
	// BaseURL is where release artifacts are hosted.
	BaseURL string `yaml:"base_url"`
	// Strategies is the ordered install-path fallback chain.
	Strategies []StrategySpec `yaml:"install_path_strategies"`
}

// Load reads settings from the provided path and validates them.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err = yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Validate checks required fields, formats, and fills defaults: a missing
// strategy chain becomes cargo-home plus a per-app home directory.
func Validate(settings *Settings) error {
	if strings.TrimSpace(settings.AppName) == "" {
		return errAppNameRequired
	}

	if settings.BaseURL == "" {
		return errBaseURLRequired
	}

	if _, err := url.ParseRequestURI(settings.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if settings.AppVersion != "" {
		if _, err := goversion.NewVersion(settings.AppVersion); err != nil {
			return fmt.Errorf("invalid app version %q: %w", settings.AppVersion, err)
		}
	}

	if len(settings.Strategies) == 0 {
		settings.Strategies = []StrategySpec{
			{Kind: StrategyCargoHome, EnvKey: "CARGO_HOME", Subdir: ".cargo"},
			{Kind: StrategyHomeSub, Subdir: "." + settings.AppName + "/bin"},
		}
	}

	for i := range settings.Strategies {
		if err := validateStrategy(&settings.Strategies[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateStrategy checks one strategy spec for completeness.
func validateStrategy(spec *StrategySpec) error {
	switch spec.Kind {
	case StrategyCargoHome:
		if spec.EnvKey == "" {
			return fmt.Errorf("%s: %w", spec.Kind, errStrategyEnvKey)
		}

		if spec.Subdir == "" {
			return fmt.Errorf("%s: %w", spec.Kind, errStrategySubdir)
		}
	case StrategyHomeSub:
		if spec.Subdir == "" {
			return fmt.Errorf("%s: %w", spec.Kind, errStrategySubdir)
		}
	case StrategyEnvSub:
		if spec.EnvKey == "" {
			return fmt.Errorf("%s: %w", spec.Kind, errStrategyEnvKey)
		}

		if spec.Subdir == "" {
			return fmt.Errorf("%s: %w", spec.Kind, errStrategySubdir)
		}
	default:
		return fmt.Errorf("%q: %w", spec.Kind, errUnknownStrategy)
	}

	return nil
}

// BuildStrategies converts the declarative specs into the ordered
// strategy chain consumed by the resolver.
func (s *Settings) BuildStrategies() []installpath.Strategy {
	strategies := make([]installpath.Strategy, 0, len(s.Strategies))

	for _, spec := range s.Strategies {
		switch spec.Kind {
		case StrategyCargoHome:
			strategies = append(strategies, installpath.CargoHomeLike{
				EnvKey:       spec.EnvKey,
				HomeFallback: spec.Subdir,
			})
		case StrategyHomeSub:
			strategies = append(strategies, installpath.HomeSubdir{Subdir: spec.Subdir})
		case StrategyEnvSub:
			strategies = append(strategies, installpath.EnvSubdir{
				Key:    spec.EnvKey,
				Subdir: spec.Subdir,
			})
		}
	}

	return strategies
}

// envPrefix derives the app-specific environment variable prefix, e.g.
// "my-app" becomes "MY_APP".
func (s *Settings) envPrefix() string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(s.AppName))
}

// InstallDirEnvVar names the override variable consulted before any
// strategy, e.g. MY_APP_INSTALL_DIR.
func (s *Settings) InstallDirEnvVar() string {
	return s.envPrefix() + "_INSTALL_DIR"
}

// NoModifyPathEnvVar names the variable suppressing PATH modification,
// e.g. MY_APP_NO_MODIFY_PATH.
func (s *Settings) NoModifyPathEnvVar() string {
	return s.envPrefix() + "_NO_MODIFY_PATH"
}
