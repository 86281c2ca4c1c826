// Package installpath chooses the installation directory through an
// ordered chain of declarative strategies evaluated against a snapshot of
// the environment. An explicit override always wins; otherwise the first
// strategy whose environment dependencies all resolve supplies the
// directory and later strategies are never evaluated. The result is a
// candidate path only: it is neither validated nor created here.
package installpath
