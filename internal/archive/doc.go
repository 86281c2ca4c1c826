// Package archive unpacks fetched release artifacts. Dispatch is strictly
// on the manifest-declared format tag, never on content sniffing. The tar
// family covers gzip, zstd, xz, bzip2 and uncompressed tarballs and strips
// exactly one top-level wrapping directory; zip archives are extracted flat.
package archive
