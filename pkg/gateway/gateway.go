package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/somtumlabs/placekit/pkg/auth"
	"github.com/somtumlabs/placekit/pkg/logger"
)

// Config holds the identity provider connection settings.
type Config struct {
	// BaseURL is the root of the provider's auth API, e.g.
	// https://api.example.com/auth/v1.
	BaseURL string `env:"IDP_BASE_URL,required"`

	// APIKey is the public (anon) API key sent with every request.
	APIKey string `env:"IDP_API_KEY"`

	// RequestTimeout bounds each HTTP request at the transport level. The
	// lifecycle manager applies its own tighter per-call deadlines on top.
	RequestTimeout time.Duration `env:"IDP_REQUEST_TIMEOUT" envDefault:"10s"`
}

// Client talks to a token-grant style identity provider over HTTP and
// implements auth.Gateway. Failures are mapped onto the structured error
// taxonomy in the auth package; callers never need to inspect status codes
// or response bodies.
type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	log       *slog.Logger
	providers map[string]*oauth2.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOAuthProvider registers a federated provider whose authorization URL
// is built client-side from an oauth2.Config. Providers not registered here
// fall back to the identity provider's own /authorize redirect.
func WithOAuthProvider(name string, conf *oauth2.Config) Option {
	return func(c *Client) {
		if name != "" && conf != nil {
			c.providers[name] = conf
		}
	}
}

// New creates a gateway client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		log:       logger.Discard(),
		providers: make(map[string]*oauth2.Config),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tokenResponse is the provider's token grant payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
}

// errorResponse is the provider's error payload.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Code        string `json:"error_code"`
	Message     string `json:"msg"`
}

// SignInWithPassword exchanges email/password for a session via the
// password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession rotates the refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*auth.Session, error) {
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type="+grantType, "", body, &tok)
	if err != nil {
		return nil, classifyGrantError(grantType, err)
	}
	return sessionFromToken(tok), nil
}

// SignUp registers a new account. When the provider requires email
// verification the response carries no tokens and the returned session is
// not Valid.
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	var tok tokenResponse
	err := c.do(ctx, http.MethodPost, "/signup", "", map[string]string{
		"email":    email,
		"password": password,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return sessionFromToken(tok), nil
}

// AuthorizeURL builds the federated sign-in redirect URL. Registered
// oauth2 providers get a provider-direct URL; anything else goes through
// the identity provider's /authorize endpoint.
func (c *Client) AuthorizeURL(provider, redirectTo string) (string, error) {
	if conf, ok := c.providers[provider]; ok {
		return conf.AuthCodeURL(redirectTo, oauth2.AccessTypeOffline), nil
	}

	u, err := url.Parse(c.baseURL + "/authorize")
	if err != nil {
		return "", fmt.Errorf("%w: %s", auth.ErrProviderUnknown, provider)
	}
	q := u.Query()
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignOut revokes the session server-side.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// Profile fetches the application profile for a user.
func (c *Client) Profile(ctx context.Context, accessToken string, userID uuid.UUID) (*auth.User, error) {
	var user auth.User
	if err := c.do(ctx, http.MethodGet, "/profiles/"+userID.String(), accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a partial profile change.
func (c *Client) UpdateProfile(ctx context.Context, accessToken string, userID uuid.UUID, update auth.ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/profiles/"+userID.String(), accessToken, update, nil)
}

// ResetPassword sends a password recovery email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", "", map[string]string{"email": email}, nil)
}

// ResendEmailVerification re-sends the signup verification email.
func (c *Client) ResendEmailVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/resend", "", map[string]string{
		"email": email,
		"type":  "signup",
	}, nil)
}

// do performs a request and maps any failure onto the auth error taxonomy.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", auth.ErrNetworkUnavailable, ctx.Err())
		}
		return fmt.Errorf("%w: %w", auth.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("gateway: decode response: %w", err)
		}
	}
	return nil
}

// apiError maps an HTTP error response onto the structured taxonomy.
func (c *Client) apiError(resp *http.Response) error {
	var apiErr errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &apiErr)

	detail := apiErr.Description
	if detail == "" {
		detail = apiErr.Message
	}
	if detail == "" {
		detail = resp.Status
	}

	c.log.Debug("identity provider error",
		slog.Int("status", resp.StatusCode),
		slog.String("code", apiErr.Code),
		slog.String("detail", detail))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", auth.ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", auth.ErrUserNotFound, detail)
	case resp.StatusCode == http.StatusBadRequest && apiErr.Error == "invalid_grant":
		return fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, detail)
	case resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", auth.ErrInvalidInput, detail)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", auth.ErrGatewayUnavailable, detail)
	default:
		return fmt.Errorf("gateway: unexpected status %d: %s", resp.StatusCode, detail)
	}
}

// classifyGrantError refines grant failures: an invalid_grant on the
// refresh grant means the refresh token specifically is dead, which the
// lifecycle manager treats differently from bad credentials.
func classifyGrantError(grantType string, err error) error {
	if grantType == "refresh_token" && errors.Is(err, auth.ErrInvalidCredentials) {
		return fmt.Errorf("%w: %w", auth.ErrRefreshTokenInvalid, err)
	}
	return err
}

// sessionFromToken normalizes a token response into a Session. Providers
// send either an absolute expiry or a relative expires_in.
func sessionFromToken(tok tokenResponse) *auth.Session {
	expiresAt := tok.ExpiresAt
	if expiresAt == 0 && tok.ExpiresIn > 0 {
		expiresAt = time.Now().Unix() + tok.ExpiresIn
	}
	return &auth.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		UserID:       tok.User.ID,
		Email:        tok.User.Email,
	}
}

// Compile-time interface assertion
var _ auth.Gateway = (*Client)(nil)
