// Package version exposes build-time version metadata injected via ldflags
// and attaches a `version` subcommand to the installer CLI.
package version
