package auth

// EventType tags an auth state change. The vocabulary matches the identity
// provider's event stream.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event is the tagged union consumed by the manager's single dispatcher.
// Session accompanies SIGNED_IN and TOKEN_REFRESHED; User accompanies
// SIGNED_IN (when already loaded) and USER_UPDATED. SIGNED_OUT carries
// neither. USER_UPDATED may instead carry a partial Update merged into the
// current profile.
type Event struct {
	Type    EventType
	Session *Session
	User    *User
	Update  *ProfileUpdate
}

// EventSource is an optional capability of a Gateway: providers that push
// auth state changes expose them as an event channel which the manager
// consumes through its dispatcher.
type EventSource interface {
	Events() <-chan Event
}
