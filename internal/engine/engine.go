package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/binstrap/binstrap/internal/logger"
)

// ErrAliasCreationFailed is returned when a hard link for an alias cannot
// be created, e.g. on a filesystem without hard link support. The engine
// never falls back to copying: a copied alias would go stale the moment
// the target is updated.
var ErrAliasCreationFailed = errors.New("alias creation failed")

// installedFileMode is applied to every placed binary.
const installedFileMode os.FileMode = 0o755

// Install copies the binaries at the provided source paths into destDir
// and hard-links every alias of each binary next to it. Sources are
// removed from the temp work area as soon as they are placed, bounding
// temp storage during multi-binary installs. Existing files at binary or
// alias locations are overwritten. Returns the installed binary names in
// input order.
func Install(ctx context.Context, binaryPaths []string, destDir string, aliases map[string][]string) ([]string, error) {
	// Idempotent: an existing destination is not an error.
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create install dir %s: %w", destDir, err)
	}

	installed := make([]string, 0, len(binaryPaths))

	for _, sourcePath := range binaryPaths {
		name := filepath.Base(sourcePath)
		targetPath := filepath.Join(destDir, name)

		if err := place(sourcePath, targetPath); err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Installed binary", "name", name, "path", targetPath)

		for _, alias := range aliases[name] {
			aliasPath := filepath.Join(destDir, alias)
			if err := link(targetPath, aliasPath); err != nil {
				return nil, err
			}

			logger.InfoKV(ctx, "Created alias", "alias", alias, "target", name)
		}

		installed = append(installed, name)
	}

	return installed, nil
}

// place overwrites targetPath with the file at sourcePath and removes the
// source. The swap goes through go-update so a binary that is currently
// running can still be replaced on platforms that forbid rewriting an
// open executable in place.
func place(sourcePath, targetPath string) error {
	// go-update swaps by renaming the current target aside, so a first
	// install needs an empty file to stand in for it.
	if _, err := os.Stat(targetPath); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(targetPath, nil, installedFileMode); err != nil {
			return fmt.Errorf("create %s: %w", targetPath, err)
		}
	}

	source, err := os.Open(filepath.Clean(sourcePath))
	if err != nil {
		return fmt.Errorf("open %s: %w", sourcePath, err)
	}

	applyErr := goupdate.Apply(source, goupdate.Options{
		TargetPath: targetPath,
		TargetMode: installedFileMode,
	})

	_ = source.Close()

	if applyErr != nil {
		return fmt.Errorf("install %s: %w", targetPath, applyErr)
	}

	// go-update leaves the previous binary behind; sweep both naming
	// forms it has used across versions.
	dir, name := filepath.Dir(targetPath), filepath.Base(targetPath)
	for _, oldPath := range []string{targetPath + ".old", filepath.Join(dir, "."+name+".old")} {
		if _, err = os.Stat(oldPath); err == nil {
			_ = os.Remove(oldPath)
		}
	}

	if err = os.Remove(sourcePath); err != nil {
		return fmt.Errorf("remove staged %s: %w", sourcePath, err)
	}

	return nil
}

// link replaces whatever is at aliasPath with a hard link to targetPath.
func link(targetPath, aliasPath string) error {
	if err := os.Remove(aliasPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: replace %s: %w", ErrAliasCreationFailed, aliasPath, err)
	}

	if err := os.Link(targetPath, aliasPath); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", ErrAliasCreationFailed, aliasPath, targetPath, err)
	}

	return nil
}
