package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/binstrap/binstrap/internal/version"
)

// receiptFileSuffix completes the per-app receipt file name.
const receiptFileSuffix = "-receipt.json"

// Provider records which installer produced a receipt, so update flows
// can tell competing install channels apart.
type Provider struct {
	// Source is the installer flavor, e.g. "binstrap-shell".
	Source string `json:"source"`
	// Version is the installer's own version.
	Version string `json:"version"`
}

// Receipt is the persisted record of one completed install.
type Receipt struct {
	// AppName is the installed application's name.
	AppName string `json:"app_name"`
	// Version is the installed application version.
	Version string `json:"version"`
	// Binaries are the installed executable names.
	Binaries []string `json:"binaries"`
	// Aliases maps each binary to the alias names linked next to it.
	Aliases map[string][]string `json:"aliases"`
	// InstallPrefix is the directory the binaries were placed in.
	InstallPrefix string `json:"install_prefix"`
	// InstalledAt is the wall-clock completion time of the install.
	InstalledAt time.Time `json:"installed_at"`
	// Provider identifies the installer that wrote this receipt.
	Provider Provider `json:"provider"`
}

// Build constructs the receipt in a single pass, once every install-time
// fact is known. There is no template-then-patch phase: callers must not
// invoke Build before the destination and concrete binary set are final.
func Build(appName, appVersion string, binaries []string, aliases map[string][]string, installPrefix string) *Receipt {
	if aliases == nil {
		aliases = map[string][]string{}
	}

	return &Receipt{
		AppName:       appName,
		Version:       appVersion,
		Binaries:      binaries,
		Aliases:       aliases,
		InstallPrefix: installPrefix,
		InstalledAt:   time.Now().UTC(),
		Provider: Provider{
			Source:  "binstrap",
			Version: version.Short(),
		},
	}
}

// DefaultDir returns the per-app receipt directory under the per-user
// application-data directory.
func DefaultDir(appName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}

	return filepath.Join(base, appName), nil
}

// Persist writes the receipt to its fixed per-app path, creating the
// directory if absent, and returns the written file path.
func Persist(r *Receipt) (string, error) {
	dir, err := DefaultDir(r.AppName)
	if err != nil {
		return "", err
	}

	return PersistTo(dir, r)
}

// PersistTo writes the receipt under the given directory, unconditionally
// overwriting any prior receipt. Output is UTF-8 JSON without a byte-order
// mark. A crash mid-write can corrupt the file; acceptable, the receipt is
// advisory metadata rather than the install itself.
func PersistTo(dir string, r *Receipt) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}

	data = append(data, '\n')

	path := filepath.Join(dir, r.AppName+receiptFileSuffix)
	if err = os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // Receipt is not sensitive.
		return "", fmt.Errorf("write receipt %s: %w", path, err)
	}

	return path, nil
}
