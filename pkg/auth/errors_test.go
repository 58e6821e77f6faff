package auth_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/somtumlabs/placekit/pkg/async"
	"github.com/somtumlabs/placekit/pkg/auth"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{name: "nil", err: nil, want: auth.KindUnknown},
		{name: "invalid input", err: auth.ErrEmailRequired, want: auth.KindInvalidInput},
		{name: "wrapped invalid input", err: fmt.Errorf("sign-in: %w", auth.ErrPasswordRequired), want: auth.KindInvalidInput},
		{name: "bad credentials", err: auth.ErrInvalidCredentials, want: auth.KindAuthFailure},
		{name: "revoked refresh token", err: fmt.Errorf("gateway: %w", auth.ErrRefreshTokenInvalid), want: auth.KindAuthFailure},
		{name: "unauthorized", err: auth.ErrUnauthorized, want: auth.KindAuthFailure},
		{name: "network down", err: auth.ErrNetworkUnavailable, want: auth.KindTransient},
		{name: "provider down", err: fmt.Errorf("call failed: %w", auth.ErrGatewayUnavailable), want: auth.KindTransient},
		{name: "future timeout", err: async.ErrTimeout, want: auth.KindTransient},
		{name: "context deadline", err: context.DeadlineExceeded, want: auth.KindTransient},
		{name: "net.Error", err: &net.DNSError{IsTimeout: true}, want: auth.KindTransient},
		{name: "anything else", err: errors.New("disk quota exceeded"), want: auth.KindUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, auth.Classify(tc.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, auth.IsTransient(auth.ErrNetworkUnavailable))
	assert.True(t, auth.IsTransient(async.ErrTimeout))
	assert.False(t, auth.IsTransient(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsTransient(auth.ErrEmailRequired))
	assert.False(t, auth.IsTransient(errors.New("unknown")),
		"unknown errors are not retried even though they never clear state")
}
