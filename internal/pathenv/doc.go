// Package pathenv idempotently registers the install directory on the
// user's persisted PATH-equivalent store. The matching and prepend logic
// is platform-neutral and operates on exact delimiter-separated segments;
// the persistence itself is abstracted behind a small Store capability so
// the Windows registry and POSIX shell env file backends swap freely.
// Only the persisted store for future sessions is mutated, never the
// running process's own environment.
package pathenv
