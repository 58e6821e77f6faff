package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/somtumlabs/placekit/pkg/auth"
)

// MockGateway is a testify mock implementation of auth.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockGateway) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockGateway) AuthorizeURL(provider, redirectTo string) (string, error) {
	args := m.Called(provider, redirectTo)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockGateway) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockGateway) Profile(ctx context.Context, accessToken string, userID uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, accessToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockGateway) UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update auth.ProfileUpdate) error {
	args := m.Called(ctx, accessToken, userID, update)
	return args.Error(0)
}

func (m *MockGateway) ResetPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockGateway) ResendEmailVerification(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// stubGateway is a function-field fake for tests that need latency
// injection and atomic call counters.
type stubGateway struct {
	signInCalls  atomic.Int32
	refreshCalls atomic.Int32
	profileCalls atomic.Int32
	signOutCalls atomic.Int32
	updateCalls  atomic.Int32

	signIn        func(ctx context.Context, email, password string) (*auth.Session, error)
	signUp        func(ctx context.Context, email, password string) (*auth.Session, error)
	refresh       func(ctx context.Context, refreshToken string) (*auth.Session, error)
	signOut       func(ctx context.Context, accessToken string) error
	profile       func(ctx context.Context, accessToken string, userID uuid.UUID) (*auth.User, error)
	updateProfile func(ctx context.Context, accessToken string, userID uuid.UUID, update auth.ProfileUpdate) error
}

func (g *stubGateway) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	g.signInCalls.Add(1)
	if g.signIn == nil {
		return nil, auth.ErrGatewayUnavailable
	}
	return g.signIn(ctx, email, password)
}

func (g *stubGateway) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	if g.signUp == nil {
		return nil, auth.ErrGatewayUnavailable
	}
	return g.signUp(ctx, email, password)
}

func (g *stubGateway) AuthorizeURL(provider, redirectTo string) (string, error) {
	return "https://idp.example.com/authorize?provider=" + provider, nil
}

func (g *stubGateway) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	g.refreshCalls.Add(1)
	if g.refresh == nil {
		return nil, auth.ErrGatewayUnavailable
	}
	return g.refresh(ctx, refreshToken)
}

func (g *stubGateway) SignOut(ctx context.Context, accessToken string) error {
	g.signOutCalls.Add(1)
	if g.signOut == nil {
		return nil
	}
	return g.signOut(ctx, accessToken)
}

func (g *stubGateway) Profile(ctx context.Context, accessToken string, userID uuid.UUID) (*auth.User, error) {
	g.profileCalls.Add(1)
	if g.profile == nil {
		return nil, auth.ErrGatewayUnavailable
	}
	return g.profile(ctx, accessToken, userID)
}

func (g *stubGateway) UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update auth.ProfileUpdate) error {
	g.updateCalls.Add(1)
	if g.updateProfile == nil {
		return nil
	}
	return g.updateProfile(ctx, accessToken, userID, update)
}

func (g *stubGateway) ResetPassword(ctx context.Context, email string) error {
	return nil
}

func (g *stubGateway) ResendEmailVerification(ctx context.Context, email string) error {
	return nil
}

// recordingStore wraps a live snapshot store and remembers every save in
// order, so tests can assert on persisted values and their sequence.
type recordingStore struct {
	mu     sync.Mutex
	snap   *auth.Snapshot
	saves  []auth.Snapshot
	clears int
}

func (s *recordingStore) Save(ctx context.Context, snap auth.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := snap
	s.snap = &copied
	s.saves = append(s.saves, copied)
	return nil
}

func (s *recordingStore) Load(ctx context.Context) (*auth.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, auth.ErrSnapshotNotFound
	}
	copied := *s.snap
	return &copied, nil
}

func (s *recordingStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	s.clears++
	return nil
}

func (s *recordingStore) stored() *auth.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *recordingStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// fakeConnectivity drives reconnect reconciliation by hand.
type fakeConnectivity struct {
	mu        sync.Mutex
	connected bool
	subs      []func(bool)
}

func (c *fakeConnectivity) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConnectivity) Subscribe(fn func(bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
	return func() {}
}

func (c *fakeConnectivity) set(connected bool) {
	c.mu.Lock()
	c.connected = connected
	subs := append([]func(bool){}, c.subs...)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(connected)
	}
}

// instantSleep removes real backoff delays from retried operations.
func instantSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func validSession(expiresAt time.Time) *auth.Session {
	return &auth.Session{
		AccessToken:  "access-" + uuid.NewString(),
		RefreshToken: "refresh-" + uuid.NewString(),
		ExpiresAt:    expiresAt.Unix(),
		UserID:       uuid.New(),
		Email:        "somchai@example.com",
	}
}
