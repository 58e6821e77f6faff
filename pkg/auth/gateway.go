package auth

import (
	"context"

	"github.com/google/uuid"
)

// Gateway performs the actual credential exchange and token refresh against
// the identity provider. The manager treats it as opaque: every method is an
// async call returning a session, a profile or an error from the structured
// taxonomy in errors.go.
//
// Access tokens are passed explicitly rather than held as ambient state so
// the manager can guarantee which session a call was made with.
type Gateway interface {
	// SignInWithPassword exchanges email/password credentials.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new account. Providers that require email
	// verification return a session without tokens until verified.
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// AuthorizeURL builds the federated sign-in redirect URL for the
	// given provider. Completing the redirect happens outside this
	// module.
	AuthorizeURL(provider, redirectTo string) (string, error)

	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)

	// SignOut revokes the session server-side. Local state is cleared
	// regardless of the outcome.
	SignOut(ctx context.Context, accessToken string) error

	// Profile fetches the user's application profile.
	Profile(ctx context.Context, accessToken string, userID uuid.UUID) (*User, error)

	// UpdateProfile applies a partial profile change.
	UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update ProfileUpdate) error

	// ResetPassword sends a password recovery email.
	ResetPassword(ctx context.Context, email string) error

	// ResendEmailVerification re-sends the signup verification email.
	ResendEmailVerification(ctx context.Context, email string) error
}
