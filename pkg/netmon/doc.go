// Package netmon tracks network connectivity through a pluggable probe.
//
// A Monitor polls the probe on an interval, exposes the last observed state
// via Connected, lets callers block on the next connection with
// WaitForConnection, and notifies subscribers on every transition. The
// session lifecycle manager uses disconnected→connected transitions to
// reconcile state that could not be refreshed while offline.
//
// The probe is injectable, so tests drive transitions directly and
// production code typically uses HTTPProbe against the backend's health
// endpoint.
package netmon
