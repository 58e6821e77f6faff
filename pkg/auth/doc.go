// Package auth implements the session lifecycle manager: establishing,
// persisting, recovering and refreshing an authenticated session across
// process restarts, network outages and token expiry.
//
// # Architecture
//
// A Manager composes an identity provider Gateway (credential exchange and
// token refresh), a SnapshotStore (best-effort durable mirror of the
// session and profile) and an optional Connectivity monitor. The UI layer
// reads a reactive State{Status, Session, User, Loading} through Current or
// Subscribe and calls the manager's operations.
//
//	┌──────────┐  SignIn / SignOut / …  ┌─────────────┐
//	│ UI layer │ ─────────────────────► │   Manager   │
//	└──────────┘  ◄──── State ──────────└─────────────┘
//	                               │            │
//	                    tokens     │            │ mirror
//	                               ▼            ▼
//	                        ┌─────────┐  ┌──────────────┐
//	                        │ Gateway │  │ SnapshotStore│
//	                        └─────────┘  └──────────────┘
//
// # Lifecycle
//
// Start enters a bounded Initializing state: a stored snapshot is adopted
// optimistically (within a 24h grace window past expiry) so the UI renders
// before the network confirms, while an authoritative refresh runs in the
// background wrapped in timeout and transient-only retry. A failsafe timer
// guarantees the loading flag drops within a fixed window no matter what
// the backend does.
//
// The guiding policy throughout: transient failures never clear state. A
// session is destroyed only by an explicit sign-out or by an auth failure
// the provider unambiguously confirmed, never by a timeout or a flaky
// profile fetch.
package auth
