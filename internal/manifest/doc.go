// Package manifest defines the platform manifest shipped with a generated
// installer: a mapping of target triples to the artifacts, binaries and
// aliases published for that platform. The manifest is produced upstream at
// generation time and is read-only input to the install pipeline.
package manifest
