package auth

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/somtumlabs/placekit/pkg/async"
)

// Input validation errors. These fail fast before any network call.
var (
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrEmailRequired    = fmt.Errorf("%w: email is required", ErrInvalidInput)
	ErrPasswordRequired = fmt.Errorf("%w: password is required", ErrInvalidInput)
)

// Gateway contract errors. Gateway implementations wrap their transport and
// protocol failures over these sentinels so classification never depends on
// string matching.
var (
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrRefreshTokenInvalid = errors.New("auth: refresh token invalid or revoked")
	ErrUnauthorized        = errors.New("auth: unauthorized")
	ErrUserNotFound        = errors.New("auth: user not found")
	ErrNetworkUnavailable  = errors.New("auth: network unavailable")
	ErrGatewayUnavailable  = errors.New("auth: identity provider unavailable")
	ErrProviderUnknown     = errors.New("auth: unknown federated provider")
)

// Lifecycle errors.
var (
	ErrSnapshotNotFound = errors.New("auth: no stored snapshot")
	ErrNoSession        = errors.New("auth: no active session")
	ErrManagerClosed    = errors.New("auth: manager is closed")
)

// Kind classifies an error for retry and state-preservation policy.
type Kind int

const (
	// KindUnknown is anything the taxonomy does not cover. Treated as
	// transient for state preservation: an unexplained failure must never
	// force a sign-out.
	KindUnknown Kind = iota
	// KindTransient covers timeouts, connectivity loss and retryable
	// provider errors. Retried with backoff; never clears state.
	KindTransient
	// KindInvalidInput covers validation failures caught before any
	// network call. Never retried.
	KindInvalidInput
	// KindAuthFailure covers failures the provider explicitly confirmed:
	// bad credentials, revoked refresh tokens. Never retried.
	KindAuthFailure
	// KindStorage covers snapshot store failures. Always swallowed and
	// logged; persistence must never fail an auth operation.
	KindStorage
)

// Classify maps an error onto the taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRefreshTokenInvalid),
		errors.Is(err, ErrUnauthorized):
		return KindAuthFailure
	case errors.Is(err, ErrNetworkUnavailable),
		errors.Is(err, ErrGatewayUnavailable),
		errors.Is(err, async.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindUnknown
}

// IsTransient reports whether the error should be retried and must not
// clear authenticated state.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}
