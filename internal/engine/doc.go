// Package engine places extracted binaries into the destination directory
// and materializes their aliases as hard links. Every step overwrites in
// place, so a partially completed install is healed by re-running the
// pipeline; no transactional guarantee spans the whole operation.
package engine
