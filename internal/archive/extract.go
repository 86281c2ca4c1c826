package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/binstrap/binstrap/internal/manifest"
)

var (
	// ErrUnknownArchiveFormat is returned when the manifest declares a
	// format this installer has no unpack strategy for.
	ErrUnknownArchiveFormat = errors.New("unknown archive format")
	// ErrExtractionFailed is returned when the unpack facility cannot
	// handle the archive, e.g. an unsupported compression codec or a
	// malformed entry. Extraction never silently produces empty output.
	ErrExtractionFailed = errors.New("archive extraction failed")
)

// extractSubdir is created next to the fetched archive to hold its contents.
const extractSubdir = "extract"

// Extract unpacks the archive at path according to the declared format and
// returns the directory holding the unpacked files.
func Extract(archivePath string, format manifest.ArchiveFormat) (string, error) {
	workDir := filepath.Join(filepath.Dir(archivePath), extractSubdir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}

	switch format {
	case manifest.FormatZip:
		if err := extractZip(archivePath, workDir); err != nil {
			return "", err
		}
	case manifest.FormatTar:
		if err := extractTar(archivePath, workDir); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArchiveFormat, format)
	}

	return workDir, nil
}

// extractZip unpacks a zip archive without stripping any directories.
func extractZip(archivePath, workDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open zip %s: %w", ErrExtractionFailed, archivePath, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		target, err := secureJoin(workDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
			}

			continue
		}

		src, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrExtractionFailed, entry.Name, err)
		}

		err = writeEntry(target, src, entry.Mode())

		_ = src.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// extractTar unpacks a tarball, choosing the decompression codec from the
// file extension and stripping exactly one top-level wrapping directory.
// Release tarballs are contractually single-rooted.
func extractTar(archivePath, workDir string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrExtractionFailed, archivePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	decompressed, closeCodec, err := decompress(archivePath, file)
	if err != nil {
		return err
	}

	defer closeCodec()

	tarReader := tar.NewReader(decompressed)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: read tar %s: %w", ErrExtractionFailed, archivePath, err)
		}

		name, ok := stripRoot(header.Name)
		if !ok {
			// The wrapping directory itself produces an empty name.
			continue
		}

		target, err := secureJoin(workDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
			}
		case tar.TypeReg:
			if err = writeEntry(target, tarReader, header.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks and special entries do not occur in release archives.
			continue
		}
	}
}

// decompress wraps the archive stream in the codec matching its extension.
func decompress(archivePath string, file io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	lower := strings.ToLower(archivePath)

	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		reader, err := gzip.NewReader(file)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: gzip: %w", ErrExtractionFailed, err)
		}

		return reader, func() { _ = reader.Close() }, nil
	case strings.HasSuffix(lower, ".tar.zst"):
		reader, err := zstd.NewReader(file)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: zstd: %w", ErrExtractionFailed, err)
		}

		return reader, reader.Close, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		reader, err := xz.NewReader(file)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: xz: %w", ErrExtractionFailed, err)
		}

		return reader, noop, nil
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return bzip2.NewReader(file), noop, nil
	case strings.HasSuffix(lower, ".tar"):
		return file, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: no codec for %s", ErrExtractionFailed, filepath.Base(archivePath))
	}
}

// stripRoot removes the single top-level directory from a tar entry name.
// It reports false for the wrapping directory itself.
func stripRoot(name string) (string, bool) {
	clean := strings.Trim(filepath.ToSlash(name), "/")
	if clean == "" || clean == "." {
		return "", false
	}

	parts := strings.SplitN(clean, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// secureJoin joins an archive entry name onto the work directory,
// rejecting absolute names and parent traversal.
func secureJoin(workDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: unsafe entry name %q", ErrExtractionFailed, name)
	}

	return filepath.Join(workDir, clean), nil
}

// writeEntry writes one archive entry to disk with its recorded mode.
func writeEntry(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrExtractionFailed, target, err)
	}

	if _, err = io.Copy(out, src); err != nil {
		_ = out.Close()

		return fmt.Errorf("%w: write %s: %w", ErrExtractionFailed, target, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrExtractionFailed, target, err)
	}

	return nil
}
