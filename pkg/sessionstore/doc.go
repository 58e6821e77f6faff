// Package sessionstore provides auth.SnapshotStore implementations: an
// in-memory store, an atomic JSON file store for on-device persistence, and
// a Redis store for server-side embedders.
//
// Every store keeps the snapshot as three logical keys (session, user and
// saved_at) under a stable prefix, written as a set and read
// all-or-nothing: a missing or unparsable part turns the entire read into
// auth.ErrSnapshotNotFound so the manager never recovers a partial
// snapshot.
package sessionstore
