package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	gate "github.com/goliatone/go-auth-gate"
)

// Config holds the GoTrue client configuration.
type Config struct {
	// BaseURL is the auth API root, e.g. https://project.supabase.co/auth/v1
	BaseURL string
	// APIKey is sent as the apikey header on every request
	APIKey string
	// JWKSURL enables signature verification of access tokens
	JWKSURL string

	HTTPClient *http.Client
	Logger     gate.Logger
}

// Client implements gate.IdentityProvider against a GoTrue compatible API.
// It keeps the current session in memory and notifies subscribers when it
// changes.
type Client struct {
	config     Config
	baseURL    *url.URL
	httpClient *http.Client
	logger     gate.Logger
	jwks       *keyfunc.JWKS
	now        func() time.Time

	mu          sync.RWMutex
	session     *gate.Session
	refresh     string
	subscribers map[uint64]gate.SessionChangeHandler
	nextID      uint64
}

var _ gate.IdentityProvider = (*Client)(nil)

// New creates a client. When JWKSURL is set the key set is fetched
// before returning and refreshed in the background.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gotrue: invalid base URL: %q", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	c := &Client{
		config:      cfg,
		baseURL:     base,
		httpClient:  client,
		logger:      logger,
		now:         time.Now,
		subscribers: map[uint64]gate.SessionChangeHandler{},
	}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Client: client,
			RefreshErrorHandler: func(err error) {
				logger.Error("failed to do a background refresh of JWT set", "error", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("gotrue: failed to load JWK set: %w", err)
		}
		c.jwks = jwks
	}

	return c, nil
}

// Close stops the background key refresh
func (c *Client) Close() {
	if c.jwks != nil {
		c.jwks.EndBackground()
	}
}

// GetSession returns the current session, refreshing it once when the
// access token has expired. A nil session means nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*gate.Session, error) {
	c.mu.RLock()
	session := c.session
	refresh := c.refresh
	c.mu.RUnlock()

	if session == nil {
		return nil, nil
	}

	if session.ExpiresAt == nil || c.now().Before(*session.ExpiresAt) {
		copied := *session
		return &copied, nil
	}

	if refresh == "" {
		c.clearSession()
		return nil, nil
	}

	resp := tokenResponse{}
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, "", map[string]any{
		"refresh_token": refresh,
	}, &resp); err != nil {
		if gate.ClassifyError(err) == gate.KindCredential {
			c.clearSession()
			return nil, nil
		}
		return nil, err
	}

	next, err := c.sessionFromToken(resp)
	if err != nil {
		return nil, err
	}
	c.storeSession(next, resp.RefreshToken, false)

	copied := *next
	return &copied, nil
}

// SignInWithPassword exchanges credentials for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*gate.AuthUser, error) {
	resp := tokenResponse{}
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, "", map[string]any{
		"email":    email,
		"password": password,
	}, &resp); err != nil {
		return nil, err
	}

	session, err := c.sessionFromToken(resp)
	if err != nil {
		return nil, err
	}

	c.storeSession(session, resp.RefreshToken, true)

	return &gate.AuthUser{
		ID:       session.UserID,
		Email:    session.Email,
		Metadata: session.Metadata,
	}, nil
}

// SignInWithOAuth builds the authorize URL of the external provider.
// No request is made; the browser follows the returned URL.
func (c *Client) SignInWithOAuth(_ context.Context, provider gate.OAuthProvider, redirectTo string) (*gate.OAuthRedirect, error) {
	if !provider.IsValid() {
		return nil, gate.ErrInvalidOAuthProvider
	}

	params := url.Values{"provider": {string(provider)}}
	if redirectTo != "" {
		params.Set("redirect_to", redirectTo)
	}

	return &gate.OAuthRedirect{
		Provider: provider,
		URL:      c.endpoint("/authorize", params),
	}, nil
}

// SignUp registers a new account. Any session returned by servers with
// auto confirmation is ignored: the user signs in after confirming.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata gate.UserMetadata, emailRedirectTo string) (*gate.AuthUser, error) {
	var query url.Values
	if emailRedirectTo != "" {
		query = url.Values{"redirect_to": {emailRedirectTo}}
	}

	resp := signUpResponse{}
	if err := c.do(ctx, http.MethodPost, "/signup", query, "", map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata.ToMap(),
	}, &resp); err != nil {
		return nil, err
	}

	user := resp.user()
	if user == nil || user.ID == "" {
		return nil, nil
	}

	return user.toAuthUser(), nil
}

// ResetPasswordForEmail sends a password recovery email
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", nil, "", map[string]any{
		"email": email,
	}, nil)
}

// UpdateUserMetadata stores metadata on the signed in user
func (c *Client) UpdateUserMetadata(ctx context.Context, metadata gate.UserMetadata) error {
	token := c.accessToken()
	if token == "" {
		return gate.ErrNoSession
	}

	user := userResponse{}
	if err := c.do(ctx, http.MethodPut, "/user", nil, token, map[string]any{
		"data": metadata.ToMap(),
	}, &user); err != nil {
		return err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.Metadata = gate.MetadataFromMap(user.UserMetadata)
	}
	c.mu.Unlock()

	return nil
}

// SignOut revokes the session. Signing out without a session succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.accessToken()
	if token == "" {
		c.clearSession()
		return nil
	}

	if err := c.do(ctx, http.MethodPost, "/logout", nil, token, nil, nil); err != nil {
		if gate.ClassifyError(err) != gate.KindCredential {
			return err
		}
		// an expired or revoked token is as good as signed out
		c.logger.Warn("logout with rejected token", "error", err)
	}

	c.clearSession()
	return nil
}

// OnSessionChange registers a session listener
func (c *Client) OnSessionChange(handler gate.SessionChangeHandler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscribers[id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// SetSession adopts the tokens handed back by an OAuth redirect
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*gate.Session, error) {
	session, err := c.sessionFromToken(tokenResponse{AccessToken: accessToken})
	if err != nil {
		return nil, err
	}

	user := userResponse{}
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.Email != "" {
		session.Email = user.Email
	}
	session.Metadata = gate.MetadataFromMap(user.UserMetadata)

	c.storeSession(session, refreshToken, true)

	copied := *session
	return &copied, nil
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) storeSession(session *gate.Session, refresh string, notify bool) {
	c.mu.Lock()
	c.session = session
	if refresh != "" {
		c.refresh = refresh
	}
	c.mu.Unlock()

	if notify {
		copied := *session
		c.emit(gate.SessionSignedIn, &copied)
	}
}

func (c *Client) clearSession() {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.refresh = ""
	c.mu.Unlock()

	if had {
		c.emit(gate.SessionSignedOut, nil)
	}
}

func (c *Client) emit(event gate.SessionEventType, session *gate.Session) {
	c.mu.RLock()
	handlers := make([]gate.SessionChangeHandler, 0, len(c.subscribers))
	for _, h := range c.subscribers {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	c.logger.Debug("session changed", "event", event, "subscribers", len(handlers))

	for _, h := range handlers {
		h(event, session)
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("apikey", c.config.APIKey)
	}
	if bearer == "" {
		bearer = c.config.APIKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(path, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return transportError(path, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
