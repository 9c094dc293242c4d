package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// tokenSkew is subtracted from a cached token's expiry.
const tokenSkew = 30 * time.Second

// Strategy is a way of producing the Authorization header value.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyToken
	StrategyBasic
	StrategyClientCredentials
)

func (s Strategy) String() string {
	switch s {
	case StrategyToken:
		return "token"
	case StrategyBasic:
		return "basic"
	case StrategyClientCredentials:
		return "client_credentials"
	}
	return "none"
}

// Credentials holds the three credential slots. Only non-blank values count.
type Credentials struct {
	Token        string // pre-encoded, sent as "Basic <token>"
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Strategy returns the first usable strategy: token, then username and
// password, then client credentials.
func (c Credentials) Strategy() Strategy {
	switch {
	case notBlank(c.Token):
		return StrategyToken
	case notBlank(c.Username) && notBlank(c.Password):
		return StrategyBasic
	case notBlank(c.ClientID) && notBlank(c.ClientSecret):
		return StrategyClientCredentials
	}
	return StrategyNone
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }

// TokenCache stores access tokens minted by the client-credentials exchange.
type TokenCache interface {
	Get(key string, now time.Time) (string, bool)
	Put(key, token string, expiresAt time.Time)
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
}

// NewMemoryTokenCache returns an empty cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]cachedToken)}
}

// Get returns the token for key if it has not expired at now.
func (c *MemoryTokenCache) Get(key string, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[key]
	if !ok || !now.Before(t.expiresAt) {
		delete(c.tokens, key)
		return "", false
	}
	return t.token, true
}

// Put stores token until expiresAt.
func (c *MemoryTokenCache) Put(key, token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = cachedToken{token: token, expiresAt: expiresAt}
}

// Authorizer produces the Authorization header value for every request.
// The strategy is selected again on each call. Without a TokenCache the
// client-credentials strategy mints a new token every time.
type Authorizer struct {
	creds      Credentials
	tokenURL   string
	httpClient *http.Client
	cache      TokenCache
	now        func() time.Time
}

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithTokenCache keeps client-credentials tokens until they expire.
func WithTokenCache(c TokenCache) AuthorizerOption {
	return func(a *Authorizer) { a.cache = c }
}

// WithTokenHTTPClient sets the HTTP client used for the token exchange.
func WithTokenHTTPClient(hc *http.Client) AuthorizerOption {
	return func(a *Authorizer) { a.httpClient = hc }
}

// NewAuthorizer creates an Authorizer that exchanges client credentials at
// {rootURL}/api/v2/token.
func NewAuthorizer(rootURL string, creds Credentials, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		creds:      creds,
		tokenURL:   strings.TrimRight(rootURL, "/") + "/api/v2/token",
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Strategy reports which strategy the next call will use.
func (a *Authorizer) Strategy() Strategy {
	return a.creds.Strategy()
}

// Authorization returns the header value for the selected strategy.
func (a *Authorizer) Authorization(ctx context.Context) (string, error) {
	switch a.creds.Strategy() {
	case StrategyToken:
		return "Basic " + strings.TrimSpace(a.creds.Token), nil
	case StrategyBasic:
		raw := a.creds.Username + ":" + a.creds.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), nil
	case StrategyClientCredentials:
		token, err := a.clientCredentialsToken(ctx)
		if err != nil {
			return "", err
		}
		return "Bearer " + token, nil
	}
	return "", fmt.Errorf("%w: no token, username/password or client credentials configured", model.ErrAuthentication)
}

func (a *Authorizer) clientCredentialsToken(ctx context.Context) (string, error) {
	key := a.creds.ClientID
	if a.cache != nil {
		if token, ok := a.cache.Get(key, a.now()); ok {
			return token, nil
		}
	}

	token, expiresAt, err := a.exchange(ctx)
	if err != nil {
		return "", err
	}
	if a.cache != nil && !expiresAt.IsZero() {
		a.cache.Put(key, token, expiresAt.Add(-tokenSkew))
	}
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// exchange performs the OAuth2 client-credentials grant.
func (a *Authorizer) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("client_id", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: token exchange: %w", model.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("%w: token exchange returned HTTP %d: %s",
			model.ErrAuthentication, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: decoding token response: %w", model.ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("%w: token response has no access_token", model.ErrAuthentication)
	}
	return tr.AccessToken, a.expiry(tr), nil
}

// expiry prefers expires_in and falls back to the JWT exp claim. A zero
// time means the token must not be cached.
func (a *Authorizer) expiry(tr tokenResponse) time.Time {
	if tr.ExpiresIn > 0 {
		return a.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
