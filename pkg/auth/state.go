package auth

// Status is the lifecycle state of the manager.
type Status string

const (
	// StatusUninitialized means Start has not been called.
	StatusUninitialized Status = "uninitialized"
	// StatusInitializing is a transient state bounded by the failsafe
	// timer; the manager never stays here indefinitely.
	StatusInitializing Status = "initializing"
	// StatusAuthenticated means a valid session is held.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no session is held.
	StatusUnauthenticated Status = "unauthenticated"
)

// transitions is the explicit transition table. Self-transitions in the two
// steady states carry refreshed sessions and profile updates.
var transitions = map[Status][]Status{
	StatusUninitialized:   {StatusInitializing},
	StatusInitializing:    {StatusAuthenticated, StatusUnauthenticated},
	StatusAuthenticated:   {StatusAuthenticated, StatusUnauthenticated, StatusInitializing},
	StatusUnauthenticated: {StatusAuthenticated, StatusUnauthenticated, StatusInitializing},
}

func (s Status) canTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// State is the reactive object exposed to the UI layer. Loading gates UI
// readiness and is guaranteed to reach false within the failsafe window no
// matter what the backend does.
type State struct {
	Status  Status
	Session *Session
	User    *User
	Loading bool
}

// Authenticated reports whether the state holds a valid session.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Session.Valid()
}
