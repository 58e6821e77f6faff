package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/somtumlabs/placekit/pkg/async"
	"github.com/somtumlabs/placekit/pkg/broadcast"
	"github.com/somtumlabs/placekit/pkg/logger"
	"github.com/somtumlabs/placekit/pkg/retry"
)

// Manager orchestrates the session lifecycle: initialization, persistence,
// recovery, periodic refresh and sign-in/out. It exclusively owns writes to
// the session, the user profile and the loading flag; the snapshot store is
// a passive mirror.
//
// All state mutations funnel through a single dispatcher serialized by a
// mutex, so a slower earlier operation can never clobber a later one: the
// in-memory state and the persisted mirror both reflect completion order.
type Manager struct {
	gateway Gateway
	store   SnapshotStore
	netmon  Connectivity
	config  Config
	log     *slog.Logger
	now     func() time.Time
	sleep   retry.SleepFunc

	bc *broadcast.Broadcaster[State]

	mu            sync.Mutex
	state         State
	lastGood      *Snapshot
	recovering    bool
	profileLoaded bool
	failsafe      *time.Timer
	closed        bool
	unsubNet      func()

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Manager. The gateway is required; everything else has a
// working default (no persistence, no network monitor, discarded logs).
func New(gateway Gateway, opts ...Option) *Manager {
	if gateway == nil {
		panic("auth: gateway is required")
	}

	m := &Manager{
		gateway: gateway,
		store:   nopStore{},
		config:  DefaultConfig(),
		log:     logger.Discard(),
		now:     time.Now,
		bc:      broadcast.New[State](8),
		state:   State{Status: StatusUninitialized},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Current returns the latest state. Session and User values in a State are
// treated as immutable; mutations always swap in fresh values.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel receiving every state change until ctx is
// cancelled or the manager closes. Slow consumers miss intermediate states
// and only observe later ones.
func (m *Manager) Subscribe(ctx context.Context) <-chan State {
	return m.bc.Subscribe(ctx)
}

// Start begins initialization: enter Initializing under a failsafe timer,
// recover a stored snapshot, and validate it against the identity provider
// in the background. Safe to call once; repeat calls are no-ops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state.Status != StatusUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state.Status = StatusInitializing
	m.state.Loading = true
	m.failsafe = time.AfterFunc(m.config.FailsafeTimeout, m.failsafeFired)
	st := m.state
	m.mu.Unlock()
	m.bc.Publish(st)

	if m.netmon != nil {
		unsub := m.netmon.Subscribe(func(connected bool) {
			if !connected {
				return
			}
			// The monitor may deliver one last transition after Close has
			// started waiting; the closed check and the Add share the mutex
			// so the waitgroup never grows behind Wait's back.
			m.mu.Lock()
			if m.closed {
				m.mu.Unlock()
				return
			}
			m.wg.Add(1)
			m.mu.Unlock()
			go func() {
				defer m.wg.Done()
				m.reconcile(context.Background())
			}()
		})
		m.mu.Lock()
		m.unsubNet = unsub
		m.mu.Unlock()
	}

	if src, ok := m.gateway.(EventSource); ok {
		m.wg.Add(1)
		go m.consumeEvents(src)
	}

	if m.config.RefreshInterval > 0 {
		m.wg.Add(1)
		go m.refreshLoop()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.initialize(ctx)
	}()

	return nil
}

// initialize runs the startup sequence: optimistic snapshot adoption, then
// an authoritative refresh bounded by timeout and retry. A transient
// failure keeps whatever was adopted; only a confirmed auth failure clears
// state.
func (m *Manager) initialize(ctx context.Context) {
	snap := m.recoverSnapshot(ctx)
	if snap == nil {
		m.settleUnauthenticated()
		return
	}

	m.adoptSnapshot(snap)

	sess, err := m.boundedSessionCall(ctx, func(ctx context.Context) (*Session, error) {
		return m.gateway.RefreshSession(ctx, snap.Session.RefreshToken)
	})
	switch {
	case err == nil:
		m.dispatch(ctx, Event{Type: EventTokenRefreshed, Session: sess})
		m.finishLoading()
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			_ = m.loadProfile(context.Background(), sess)
		}()
	case Classify(err) == KindAuthFailure:
		m.log.Warn("stored session rejected by identity provider, signing out",
			slog.Any("error", err))
		m.dispatch(ctx, Event{Type: EventSignedOut})
		m.finishLoading()
	default:
		// Transient or unknown: the adopted snapshot stays. The periodic
		// refresh loop and reconnect reconciliation pick it up later.
		m.log.Info("authoritative session fetch failed, keeping recovered snapshot",
			slog.Any("error", err))
		m.finishLoading()
	}
}

// SignIn authenticates with email and password. Empty credentials fail
// immediately with an invalid-input error, before any network call. The
// loading flag is raised for the duration and always returns to false.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}

	m.setLoading(true)
	defer m.setLoading(false)

	sess, err := m.boundedSessionCall(ctx, func(ctx context.Context) (*Session, error) {
		return m.gateway.SignInWithPassword(ctx, email, password)
	})
	if err != nil {
		return err
	}

	m.dispatch(ctx, Event{Type: EventSignedIn, Session: sess, User: minimalUser(sess)})
	_ = m.loadProfile(ctx, sess)
	return nil
}

// SignUp registers a new account. Providers requiring email verification
// return no tokens until the address is confirmed; in that case the state
// stays unauthenticated.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}

	m.setLoading(true)
	defer m.setLoading(false)

	sess, err := m.boundedSessionCall(ctx, func(ctx context.Context) (*Session, error) {
		return m.gateway.SignUp(ctx, email, password)
	})
	if err != nil {
		return err
	}

	if !sess.Valid() {
		m.log.Info("sign-up pending email verification", slog.String("email", email))
		return nil
	}

	m.dispatch(ctx, Event{Type: EventSignedIn, Session: sess, User: minimalUser(sess)})
	_ = m.loadProfile(ctx, sess)
	return nil
}

// SignInWithProvider returns the federated sign-in redirect URL. Completing
// the redirect flow happens outside this module; the resulting session
// arrives through the gateway's event stream.
func (m *Manager) SignInWithProvider(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", ErrProviderUnknown
	}
	return m.gateway.AuthorizeURL(provider, redirectTo)
}

// SignOut clears the session, the profile and the durable store. It is the
// only operation permitted to do so unconditionally. The gateway call is
// best-effort: local sign-out is authoritative for the client's own state,
// so a failed revocation still clears everything. Idempotent.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	var token string
	if m.state.Session != nil {
		token = m.state.Session.AccessToken
	}
	m.mu.Unlock()

	if token != "" {
		callCtx, cancel := context.WithTimeout(ctx, m.config.sessionDeadline())
		if err := m.gateway.SignOut(callCtx, token); err != nil {
			m.log.Warn("gateway sign-out failed, clearing local state anyway",
				slog.Any("error", err))
		}
		cancel()
	}

	m.dispatch(ctx, Event{Type: EventSignedOut})
	return nil
}

// RefreshSession exchanges the current session's refresh token for a new
// session. The token is captured before the call so a concurrent state
// change cannot swap it mid-flight. On transient failure the session is
// left untouched: still valid until proven otherwise. On a confirmed
// invalid refresh token the manager attempts snapshot recovery once before
// clearing state.
func (m *Manager) RefreshSession(ctx context.Context) error {
	m.mu.Lock()
	sess := m.state.Session
	m.mu.Unlock()
	if !sess.Valid() {
		return ErrNoSession
	}
	refreshToken := sess.RefreshToken

	newSess, err := m.boundedSessionCall(ctx, func(ctx context.Context) (*Session, error) {
		return m.gateway.RefreshSession(ctx, refreshToken)
	})
	if err == nil {
		m.dispatch(ctx, Event{Type: EventTokenRefreshed, Session: newSess})
		return nil
	}

	if Classify(err) != KindAuthFailure {
		m.log.Debug("session refresh failed transiently, keeping session",
			slog.Any("error", err))
		return err
	}

	if errors.Is(err, ErrRefreshTokenInvalid) {
		m.mu.Lock()
		current := m.state.Session
		m.mu.Unlock()
		if current.Valid() && current.RefreshToken != refreshToken {
			// A concurrent refresh already rotated the token; this failure
			// is about a dead predecessor, not the session we hold now.
			m.log.Debug("stale refresh failure ignored, newer session already installed")
			return nil
		}
		if snap := m.recoverSnapshot(ctx); snap != nil && snap.Session.RefreshToken != refreshToken {
			// Another writer persisted a newer session while this refresh
			// was in flight; adopt it instead of signing out.
			m.dispatch(ctx, Event{Type: EventTokenRefreshed, Session: snap.Session, User: snap.User})
			return nil
		}
	}

	m.log.Warn("refresh token rejected, signing out", slog.Any("error", err))
	m.dispatch(ctx, Event{Type: EventSignedOut})
	return err
}

// RefreshUser reloads the profile for the current session.
func (m *Manager) RefreshUser(ctx context.Context) error {
	m.mu.Lock()
	sess := m.state.Session
	m.mu.Unlock()
	if !sess.Valid() {
		return ErrNoSession
	}
	return m.loadProfile(ctx, sess)
}

// UpdateProfile writes a partial profile change to the backend and, on
// success, merges it into the in-memory profile optimistically instead of
// re-fetching. The merged value is immediately visible to readers.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	m.mu.Lock()
	sess := m.state.Session
	m.mu.Unlock()
	if !sess.Valid() {
		return ErrNoSession
	}

	_, err := retry.Do(ctx,
		retry.Policy{MaxAttempts: m.config.RetryAttempts, BaseDelay: m.config.RetryBaseDelay},
		func(ctx context.Context) (struct{}, error) {
			fut := async.Go(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, m.gateway.UpdateProfile(ctx, sess.AccessToken, sess.UserID, update)
			})
			return fut.AwaitWithTimeout(m.config.profileDeadline())
		},
		m.retryOpts()...,
	)
	if err != nil {
		return err
	}

	m.dispatch(ctx, Event{Type: EventUserUpdated, Update: &update})
	return nil
}

// ResetPassword requests a password recovery email.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	callCtx, cancel := context.WithTimeout(ctx, m.config.sessionDeadline())
	defer cancel()
	return m.gateway.ResetPassword(callCtx, email)
}

// ResendEmailVerification re-sends the signup verification email.
func (m *Manager) ResendEmailVerification(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	callCtx, cancel := context.WithTimeout(ctx, m.config.sessionDeadline())
	defer cancel()
	return m.gateway.ResendEmailVerification(callCtx, email)
}

// Close tears the manager down: stops the failsafe timer and the periodic
// refresh loop, unsubscribes from connectivity transitions and suppresses
// the effects of any still-in-flight operations. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.failsafe != nil {
		m.failsafe.Stop()
		m.failsafe = nil
	}
	unsub := m.unsubNet
	m.unsubNet = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.closeOnce.Do(func() { close(m.done) })
	m.wg.Wait()
	m.bc.Close()
	return nil
}

// dispatch is the single place state mutates. It validates the transition,
// updates the last-known-good snapshot on successful results only, mirrors
// the state into the store while still holding the lock (so the persisted
// value always reflects completion order), and publishes the new state.
// Dispatches after Close are suppressed.
func (m *Manager) dispatch(ctx context.Context, ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	st := m.state
	switch ev.Type {
	case EventSignedIn:
		if !ev.Session.Valid() {
			m.mu.Unlock()
			return
		}
		st.Status = StatusAuthenticated
		st.Session = ev.Session
		if ev.User != nil {
			st.User = ev.User
		}
		m.profileLoaded = false
	case EventTokenRefreshed:
		if !ev.Session.Valid() {
			m.mu.Unlock()
			return
		}
		st.Status = StatusAuthenticated
		st.Session = ev.Session
		if st.User == nil && ev.User != nil {
			st.User = ev.User
		}
	case EventUserUpdated:
		// Profile results are only meaningful against a live session. A
		// load that completes after sign-out must not resurrect the user.
		if st.Status != StatusAuthenticated || !st.Session.Valid() {
			m.mu.Unlock()
			return
		}
		if ev.Update != nil {
			st.User = st.User.Apply(*ev.Update)
		} else if ev.User != nil {
			st.User = ev.User
		}
		if ev.Session.Valid() {
			st.Session = ev.Session
		}
	case EventSignedOut:
		st.Status = StatusUnauthenticated
		st.Session = nil
		st.User = nil
		m.profileLoaded = false
	default:
		m.mu.Unlock()
		return
	}

	if !m.state.Status.canTransitionTo(st.Status) {
		m.log.Error("rejected invalid state transition",
			slog.String("from", string(m.state.Status)),
			slog.String("to", string(st.Status)),
			slog.String("event", string(ev.Type)))
		m.mu.Unlock()
		return
	}
	m.state = st

	if ev.Type == EventSignedOut {
		m.lastGood = nil
		m.clearStoreLocked(ctx)
	} else if st.Session.Valid() {
		m.lastGood = &Snapshot{Session: st.Session, User: st.User, SavedAt: m.now()}
		m.saveStoreLocked(ctx, *m.lastGood)
	}

	state := m.state
	m.mu.Unlock()
	m.bc.Publish(state)
}

// recoverSnapshot loads the stored snapshot if it is within the recovery
// grace window. Overlapping recovery attempts are deduplicated: a caller
// arriving while another recovery is in flight receives the last known
// in-memory values instead of racing on storage I/O.
func (m *Manager) recoverSnapshot(ctx context.Context) *Snapshot {
	m.mu.Lock()
	if m.recovering {
		snap := m.lastGood
		m.mu.Unlock()
		return snap
	}
	m.recovering = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.recovering = false
		m.mu.Unlock()
	}()

	loadCtx, cancel := context.WithTimeout(ctx, m.config.StoreTimeout)
	defer cancel()

	snap, err := m.store.Load(loadCtx)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			m.log.Warn("snapshot load failed", slog.Any("error", err))
		}
		return nil
	}
	if snap == nil || !snap.Session.RecoverableAt(m.now(), m.config.RecoveryGraceWindow) {
		return nil
	}
	return snap
}

// adoptSnapshot installs a recovered snapshot optimistically so the UI can
// render before the network confirms. The failsafe's job is done once the
// loading flag drops.
func (m *Manager) adoptSnapshot(snap *Snapshot) {
	m.mu.Lock()
	if m.closed || m.state.Status != StatusInitializing {
		m.mu.Unlock()
		return
	}
	m.state.Status = StatusAuthenticated
	m.state.Session = snap.Session
	m.state.User = snap.User
	m.state.Loading = false
	m.lastGood = snap
	if m.failsafe != nil {
		m.failsafe.Stop()
		m.failsafe = nil
	}
	st := m.state
	m.mu.Unlock()
	m.bc.Publish(st)
}

// settleUnauthenticated ends initialization without a session. The store is
// deliberately not cleared: only an explicit sign-out or a confirmed auth
// failure may do that.
func (m *Manager) settleUnauthenticated() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.state.Status == StatusInitializing {
		m.state.Status = StatusUnauthenticated
	}
	m.state.Loading = false
	if m.failsafe != nil {
		m.failsafe.Stop()
		m.failsafe = nil
	}
	st := m.state
	m.mu.Unlock()
	m.bc.Publish(st)
}

// failsafeFired forces the loading flag to false after the failsafe window,
// falling back to the best available state: the last-known-good snapshot if
// one is recoverable, otherwise unauthenticated.
func (m *Manager) failsafeFired() {
	m.mu.Lock()
	if m.closed || !m.state.Loading {
		m.mu.Unlock()
		return
	}
	if m.state.Status == StatusInitializing {
		if m.lastGood != nil && m.lastGood.Session.RecoverableAt(m.now(), m.config.RecoveryGraceWindow) {
			m.state.Status = StatusAuthenticated
			m.state.Session = m.lastGood.Session
			m.state.User = m.lastGood.User
		} else {
			m.state.Status = StatusUnauthenticated
		}
	}
	m.state.Loading = false
	st := m.state
	m.mu.Unlock()

	m.log.Warn("initialization failsafe fired, settling with best available state",
		slog.String("status", string(st.Status)))
	m.bc.Publish(st)
}

// loadProfile fetches the profile bounded by timeout and retry. On failure
// it degrades instead of failing the caller: existing in-memory profile,
// then last-known-good, then a minimal profile from the session's identity
// claims. A user is essentially never signed out by a flaky profile call.
func (m *Manager) loadProfile(ctx context.Context, sess *Session) error {
	user, err := retry.Do(ctx,
		retry.Policy{MaxAttempts: m.config.RetryAttempts, BaseDelay: m.config.RetryBaseDelay},
		func(ctx context.Context) (*User, error) {
			fut := async.Go(ctx, func(ctx context.Context) (*User, error) {
				return m.gateway.Profile(ctx, sess.AccessToken, sess.UserID)
			})
			return fut.AwaitWithTimeout(m.config.profileDeadline())
		},
		m.retryOpts()...,
	)
	if err == nil {
		m.dispatch(ctx, Event{Type: EventUserUpdated, User: user})
		m.mu.Lock()
		m.profileLoaded = true
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	existing := m.state.User
	lastGood := m.lastGood
	m.mu.Unlock()

	switch {
	case existing != nil:
		// Keep the stale profile.
	case lastGood != nil && lastGood.User != nil:
		m.dispatch(ctx, Event{Type: EventUserUpdated, User: lastGood.User})
	case minimalUser(sess) != nil:
		m.dispatch(ctx, Event{Type: EventUserUpdated, User: minimalUser(sess)})
	}

	m.log.Warn("profile load failed, serving degraded profile", slog.Any("error", err))
	if IsTransient(err) {
		return nil
	}
	return err
}

// reconcile runs on disconnected→connected transitions: refresh a session
// nearing expiry and reload the profile unless the last load came from the
// gateway. A degraded profile (last-known-good or claims-derived) counts as
// not loaded so it gets replaced once connectivity returns.
func (m *Manager) reconcile(ctx context.Context) {
	m.mu.Lock()
	sess := m.state.Session
	loaded := m.profileLoaded
	m.mu.Unlock()

	if !sess.Valid() {
		return
	}
	if sess.ExpiresWithin(m.now(), m.config.RefreshLeeway) {
		_ = m.RefreshSession(ctx)
		m.mu.Lock()
		sess = m.state.Session
		m.mu.Unlock()
		if !sess.Valid() {
			return
		}
	}
	if !loaded {
		_ = m.loadProfile(ctx, sess)
	}
}

func (m *Manager) refreshLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			sess := m.state.Session
			m.mu.Unlock()
			if !sess.Valid() || !sess.ExpiresWithin(m.now(), m.config.RefreshLeeway) {
				continue
			}
			if m.netmon != nil && !m.netmon.Connected() {
				// Offline: reconnect reconciliation will refresh.
				continue
			}
			_ = m.RefreshSession(context.Background())
		case <-m.done:
			return
		}
	}
}

func (m *Manager) consumeEvents(src EventSource) {
	defer m.wg.Done()

	for {
		select {
		case ev, ok := <-src.Events():
			if !ok {
				return
			}
			m.dispatch(context.Background(), ev)
		case <-m.done:
			return
		}
	}
}

// boundedSessionCall wraps a gateway session call in the deadline and the
// transient-only retry policy.
func (m *Manager) boundedSessionCall(ctx context.Context, fn func(context.Context) (*Session, error)) (*Session, error) {
	return retry.Do(ctx,
		retry.Policy{MaxAttempts: m.config.RetryAttempts, BaseDelay: m.config.RetryBaseDelay},
		func(ctx context.Context) (*Session, error) {
			return async.Go(ctx, fn).AwaitWithTimeout(m.config.sessionDeadline())
		},
		m.retryOpts()...,
	)
}

func (m *Manager) retryOpts() []retry.Option {
	opts := []retry.Option{retry.WithRetryable(IsTransient)}
	if m.sleep != nil {
		opts = append(opts, retry.WithSleep(m.sleep))
	}
	return opts
}

// setLoading flips the loading flag and publishes the change.
func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	if m.closed || m.state.Loading == loading {
		m.mu.Unlock()
		return
	}
	m.state.Loading = loading
	st := m.state
	m.mu.Unlock()
	m.bc.Publish(st)
}

// finishLoading cancels the failsafe timer and drops the loading flag.
func (m *Manager) finishLoading() {
	m.mu.Lock()
	if m.failsafe != nil {
		m.failsafe.Stop()
		m.failsafe = nil
	}
	if m.closed || !m.state.Loading {
		m.mu.Unlock()
		return
	}
	m.state.Loading = false
	st := m.state
	m.mu.Unlock()
	m.bc.Publish(st)
}

// saveStoreLocked mirrors the snapshot best-effort. Storage failures are
// logged and swallowed: persistence must never fail an auth operation.
func (m *Manager) saveStoreLocked(ctx context.Context, snap Snapshot) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.StoreTimeout)
	defer cancel()
	if err := m.store.Save(saveCtx, snap); err != nil {
		m.log.Warn("snapshot save failed", slog.Any("error", err))
	}
}

func (m *Manager) clearStoreLocked(ctx context.Context) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.StoreTimeout)
	defer cancel()
	if err := m.store.Clear(clearCtx); err != nil {
		m.log.Warn("snapshot clear failed", slog.Any("error", err))
	}
}
