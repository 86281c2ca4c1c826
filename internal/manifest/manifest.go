package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ArchiveFormat is the manifest-declared packaging of an artifact.
// Extraction dispatches strictly on this tag, never on archive content.
type ArchiveFormat string

const (
	// FormatZip marks artifacts packaged as zip archives.
	FormatZip ArchiveFormat = "zip"
	// FormatTar marks artifacts packaged as tarballs, possibly compressed
	// with any of the supported codecs (gzip, zstd, xz, bzip2 or none).
	FormatTar ArchiveFormat = "tar"
)

// DefaultManifestFilename is the manifest file placed next to a generated installer.
const DefaultManifestFilename = "binstrap-manifest.json"

var (
	// errManifestEmpty is returned when the manifest declares no platforms.
	errManifestEmpty = errors.New("manifest declares no platforms")
	// errNoBinaries is returned when an artifact lists no binaries.
	errNoBinaries = errors.New("artifact lists no binaries")
	// errUnknownAliasTarget is returned when an alias references an undeclared binary.
	errUnknownAliasTarget = errors.New("alias target is not a declared binary")
	// errMissingArtifactID is returned when an artifact has no identifier.
	errMissingArtifactID = errors.New("artifact id is empty")
)

// UpdaterArtifact describes the optional companion self-update binary
// published alongside the main artifact.
type UpdaterArtifact struct {
	// ArtifactID is the downloadable object name for the updater.
	ArtifactID string `json:"artifact_id"`
	// Binary is the executable name inside the updater artifact.
	Binary string `json:"binary_name"`
}

// ArtifactInfo describes one platform's downloadable release artifact.
type ArtifactInfo struct {
	// ArtifactID is the downloadable object name appended to the base URL.
	ArtifactID string `json:"artifact_id"`
	// Binaries are the executable names inside the archive, in install order.
	Binaries []string `json:"binaries"`
	// Format is the declared packaging of the artifact.
	Format ArchiveFormat `json:"archive_format"`
	// Aliases maps a binary name to additional command names that must
	// resolve to the same executable after install.
	Aliases map[string][]string `json:"aliases,omitempty"`
	// Updater optionally names a companion self-update binary.
	Updater *UpdaterArtifact `json:"updater,omitempty"`
}

// Manifest maps target triples to their release artifacts.
type Manifest map[string]ArtifactInfo

// Parse decodes and validates a manifest from JSON bytes.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Load reads and parses a manifest from the provided path.
func Load(path string) (Manifest, error) {
	if path == "" {
		path = DefaultManifestFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Validate enforces the manifest invariants: at least one platform,
// non-empty binary lists, artifact ids present, and alias keys referring
// only to declared binaries.
func (m Manifest) Validate() error {
	if len(m) == 0 {
		return errManifestEmpty
	}

	for triple, art := range m {
		if art.ArtifactID == "" {
			return fmt.Errorf("%s: %w", triple, errMissingArtifactID)
		}

		if len(art.Binaries) == 0 {
			return fmt.Errorf("%s: %w", triple, errNoBinaries)
		}

		declared := make(map[string]struct{}, len(art.Binaries))
		for _, name := range art.Binaries {
			declared[name] = struct{}{}
		}

		for target := range art.Aliases {
			if _, ok := declared[target]; !ok {
				return fmt.Errorf("%s: %q: %w", triple, target, errUnknownAliasTarget)
			}
		}

		if art.Updater != nil && art.Updater.ArtifactID == "" {
			return fmt.Errorf("%s: updater: %w", triple, errMissingArtifactID)
		}
	}

	return nil
}

// Keys returns the manifest's target triples in sorted order,
// used both for platform matching and for diagnostics.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for triple := range m {
		keys = append(keys, triple)
	}

	sort.Strings(keys)

	return keys
}
