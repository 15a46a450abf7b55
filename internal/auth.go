package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
)

const (
	defaultTokenEndpointPath = "api/v1/access_token"

	grantClientCredentials = "client_credentials"
	grantPassword          = "password"

	// tokenExpiryMargin is subtracted from expires_in so a token is never
	// used in its final seconds.
	tokenExpiryMargin = 60 * time.Second
)

// Authenticator retrieves and caches an access token from the Reddit API.
// It uses the password grant when a username and password are set and the
// client_credentials (app-only) grant otherwise. Safe for concurrent use.
type Authenticator struct {
	client       *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	BaseURL      *url.URL
	tokenURL     *url.URL
	formData     url.Values
	logger       *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewAuthenticator creates a new authenticator.
// The tokenPath parameter can be an empty string to use the default Reddit token endpoint.
func NewAuthenticator(httpClient *http.Client, username, password, clientID, clientSecret, userAgent, baseURL, tokenPath string, logger *slog.Logger) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clientID == "" || clientSecret == "" {
		return nil, &pkgerrs.ConfigError{Field: "ClientID", Message: "client ID and secret are required"}
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "AuthURL", Message: fmt.Sprintf("failed to parse base URL: %v", err)}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if tokenPath == "" {
		tokenPath = defaultTokenEndpointPath
	}

	resolvedTokenURL, err := parsedURL.Parse(tokenPath)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "AuthURL", Message: fmt.Sprintf("failed to parse token endpoint path: %v", err)}
	}

	form := url.Values{}
	if username != "" && password != "" {
		form.Set("grant_type", grantPassword)
		form.Set("username", username)
		form.Set("password", password)
	} else {
		form.Set("grant_type", grantClientCredentials)
	}

	return &Authenticator{
		client:       httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		BaseURL:      parsedURL,
		tokenURL:     resolvedTokenURL,
		formData:     form,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// GrantType reports which OAuth grant the authenticator uses.
func (a *Authenticator) GrantType() string {
	return a.formData.Get("grant_type")
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// GetToken returns the cached token, requesting a new one when none is
// cached or the cached one is about to expire.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Before(a.expires) {
		return a.token, nil
	}

	token, expiresIn, err := a.requestToken(ctx)
	if err != nil {
		return "", err
	}

	a.token = token
	a.expires = a.now().Add(tokenLifetime(expiresIn))
	a.logger.Debug("obtained access token", "grant_type", a.GrantType(), "expires_in", expiresIn)
	return token, nil
}

// Invalidate drops the cached token so the next GetToken fetches a new one.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expires = time.Time{}
	a.mu.Unlock()
}

func (a *Authenticator) requestToken(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL.String(), strings.NewReader(a.formData.Encode()))
	if err != nil {
		return "", 0, &pkgerrs.AuthError{Message: "failed to create token request", Err: err}
	}

	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		// Transport failures are not credential problems; leave them to the
		// retry classifier.
		return "", 0, &pkgerrs.RequestError{Operation: "token", URL: a.tokenURL.String(), Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &pkgerrs.RequestError{Operation: "token", URL: a.tokenURL.String(), Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
			return "", 0, &pkgerrs.AuthError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		}
		return "", 0, &pkgerrs.APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		return "", 0, &pkgerrs.AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			Message:    "failed to unmarshal token response",
			Err:        err,
		}
	}

	// Reddit answers bad password-grant credentials with 200 and an error field.
	if tokenResp.Error != "" {
		return "", 0, &pkgerrs.AuthError{StatusCode: http.StatusUnauthorized, Body: string(bodyBytes), Message: tokenResp.Error}
	}

	if tokenResp.AccessToken == "" {
		return "", 0, &pkgerrs.AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			Message:    "access token was empty in response",
		}
	}

	return tokenResp.AccessToken, time.Duration(tokenResp.ExpiresIn) * time.Second, nil
}

// tokenLifetime is how long a token with the given expires_in is reused.
// Lifetimes too short to absorb the margin are halved instead.
func tokenLifetime(expiresIn time.Duration) time.Duration {
	if expiresIn > 2*tokenExpiryMargin {
		return expiresIn - tokenExpiryMargin
	}
	return max(expiresIn/2, 0)
}
