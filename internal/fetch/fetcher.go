package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFetchFailed is returned for any transport error or non-success status
// while downloading an artifact. The wrapped message carries the URL and cause.
var ErrFetchFailed = errors.New("artifact fetch failed")

// tempDirPrefix namespaces this installer's temp directories.
const tempDirPrefix = "binstrap-"

// Fetcher downloads artifacts into per-invocation temp directories.
type Fetcher struct {
	// client is the HTTP client used for all downloads.
	client *http.Client

	// workDirs records every temp directory created, for later cleanup.
	workDirs []string
}

// New returns a Fetcher using the default HTTP client.
func New() *Fetcher {
	return NewWithClient(http.DefaultClient)
}

// NewWithClient returns a Fetcher using the provided HTTP client.
func NewWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads {baseURL}/{artifactID} into a fresh temp directory and
// returns the local file path. The file keeps the artifact's base name.
func (f *Fetcher) Fetch(ctx context.Context, baseURL, artifactID string) (string, error) {
	return f.FetchAs(ctx, baseURL, artifactID, path.Base(artifactID))
}

// FetchAs downloads {baseURL}/{artifactID} into a fresh temp directory
// under the provided file name. Used for the companion updater binary,
// which must land under a deterministic name so a future self-update
// routine can locate it without re-reading the manifest.
func (f *Fetcher) FetchAs(ctx context.Context, baseURL, artifactID, fileName string) (string, error) {
	dir, err := f.newWorkDir()
	if err != nil {
		return "", err
	}

	finalURL, err := joinURL(baseURL, artifactID)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, baseURL, err)
	}

	localPath := filepath.Join(dir, fileName)
	if err = f.download(ctx, finalURL, localPath); err != nil {
		return "", err
	}

	return localPath, nil
}

// WorkDirs returns every temp directory created so far.
// The pipeline removes them in its deferred cleanup.
func (f *Fetcher) WorkDirs() []string {
	return f.workDirs
}

// newWorkDir creates a uniquely named temp directory for one download.
// A UUID in the name keeps concurrent installer invocations from colliding.
func (f *Fetcher) newWorkDir() (string, error) {
	dir := filepath.Join(os.TempDir(), tempDirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	f.workDirs = append(f.workDirs, dir)

	return dir, nil
}

// download performs a single GET and writes the body to localPath.
func (f *Fetcher) download(ctx context.Context, finalURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, finalURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, finalURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrFetchFailed, finalURL, resp.Status)
	}

	out, err := os.Create(filepath.Clean(localPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}

	if _, err = io.Copy(out, resp.Body); err != nil {
		_ = out.Close()

		return fmt.Errorf("%w: %s: %w", ErrFetchFailed, finalURL, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}

	return nil
}

// joinURL appends the artifact id to the base URL path,
// normalizing duplicate slashes.
func joinURL(baseURL, artifactID string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	parsed.Path = path.Join(parsed.Path, artifactID)

	return parsed.String(), nil
}
