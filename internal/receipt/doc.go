// Package receipt builds and persists the durable record of what an
// install placed on disk. The receipt is advisory metadata consumed by
// later update and uninstall flows; the installer itself never reads it
// back after writing.
package receipt
