// Package platform detects the local target triple and matches it against
// the set of platforms published in the manifest. Detection degrades
// gracefully: exact triples are tried first, then compatible approximations
// where hardware emulation is assumed available, then a bitness-only tier.
package platform
