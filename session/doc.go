// Package session houses concrete implementations of core.SessionStore. The
// interface itself (and the Session struct) live in the core package so the
// flow can record events without depending on concrete storage.
//
// InMemoryStore suits tests and one-shot CLI runs; the sqlite sub-package
// persists sessions across processes. Only the wiring layer decides which
// implementation to instantiate.
package session
