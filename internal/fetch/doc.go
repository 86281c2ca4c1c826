// Package fetch downloads release artifacts over HTTP(S) into uniquely
// named temporary directories. There are no retries: any transport or
// non-success error is fatal so a half-downloaded artifact is never
// handed to extraction.
package fetch
