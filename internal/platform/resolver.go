package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedPlatform is returned when no manifest entry matches the
// detected platform. The wrapped message carries the detected triple and
// the manifest's key set for diagnosis.
var ErrUnsupportedPlatform = errors.New("platform not supported by this release")

// Resolve picks the manifest key matching the local platform.
// It fails only when none of the compatible candidate triples appears
// in the provided key set.
func Resolve(keys []string) (string, error) {
	return resolve(runtime.GOOS, runtime.GOARCH, keys)
}

// Detected returns the best-guess triple for the local platform without
// consulting a manifest. Used for diagnostics.
func Detected() string {
	return candidates(runtime.GOOS, runtime.GOARCH)[0]
}

func resolve(goos, goarch string, keys []string) (string, error) {
	published := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		published[key] = struct{}{}
	}

	tried := candidates(goos, goarch)
	for _, triple := range tried {
		if _, ok := published[triple]; ok {
			return triple, nil
		}
	}

	return "", fmt.Errorf("%w: detected %s, release provides [%s]",
		ErrUnsupportedPlatform, tried[0], strings.Join(keys, ", "))
}

// candidates lists compatible target triples for a GOOS/GOARCH pair in
// preference order. Exact matches come first; approximations follow where
// an emulation layer is assumed available (Rosetta on Apple silicon,
// x64 emulation on Windows-on-ARM); 32-bit artifacts close the list on
// platforms whose 64-bit hosts still run them.
func candidates(goos, goarch string) []string {
	switch goos {
	case "linux":
		switch goarch {
		case "amd64":
			return []string{"x86_64-unknown-linux-gnu", "x86_64-unknown-linux-musl"}
		case "arm64":
			return []string{"aarch64-unknown-linux-gnu", "aarch64-unknown-linux-musl"}
		case "386":
			return []string{"i686-unknown-linux-gnu", "i686-unknown-linux-musl"}
		case "arm":
			return []string{"armv7-unknown-linux-gnueabihf"}
		}
	case "darwin":
		switch goarch {
		case "arm64":
			return []string{"aarch64-apple-darwin", "x86_64-apple-darwin"}
		case "amd64":
			return []string{"x86_64-apple-darwin"}
		}
	case "windows":
		switch goarch {
		case "amd64":
			return []string{"x86_64-pc-windows-msvc", "i686-pc-windows-msvc"}
		case "arm64":
			return []string{"aarch64-pc-windows-msvc", "x86_64-pc-windows-msvc", "i686-pc-windows-msvc"}
		case "386":
			return []string{"i686-pc-windows-msvc"}
		}
	}

	// Lowest-fidelity tier: synthesize a triple from the raw values so the
	// failure message still names what was detected.
	return []string{goarch + "-unknown-" + goos}
}

// ExeSuffix returns ".exe" on Windows and "" elsewhere.
func ExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}
