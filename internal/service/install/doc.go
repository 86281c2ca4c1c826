// Package install orchestrates the installer pipeline: platform
// detection, artifact fetch, extraction, install-path resolution, binary
// placement, receipt persistence and PATH registration. The pipeline is
// strictly linear and aborts on the first error; every on-disk mutation
// overwrites in place, so re-running a failed install self-heals.
package install
