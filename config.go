package extractor

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jamesprial/go-reddit-extractor/internal"
	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/retry"
)

const (
	// DefaultBaseURL is the default Reddit API base URL
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-reddit-extractor/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Environment variables read by LoadConfig.
const (
	EnvClientID     = "REDDIT_CLIENT_ID"
	EnvClientSecret = "REDDIT_CLIENT_SECRET"
	EnvUserAgent    = "REDDIT_USER_AGENT"
	EnvUsername     = "REDDIT_USERNAME"
	EnvPassword     = "REDDIT_PASSWORD"
)

// RateLimitConfig controls client-side request throttling.
type RateLimitConfig = internal.RateLimitConfig

// Config holds the configuration for the extractor.
//
// For application-only authentication provide ClientID and ClientSecret.
// Setting Username and Password as well switches to the password grant.
type Config struct {
	// Username and Password for password grant flow.
	// Leave empty for app-only authentication.
	Username string
	Password string

	// ClientID and ClientSecret for OAuth2 authentication.
	// Required. Obtain these from Reddit's app preferences.
	ClientID     string
	ClientSecret string

	// UserAgent string to identify your application to Reddit.
	// Example: "script:thread-extractor:1.0 by /u/myusername"
	UserAgent string

	// BaseURL and AuthURL default to DefaultBaseURL and DefaultAuthURL.
	BaseURL string
	AuthURL string

	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// RateLimit defaults to 60 requests per minute with a burst of 10.
	RateLimit *RateLimitConfig

	// Retry bounds the retry loop around post and comment retrieval.
	// The zero value means retry.DefaultPolicy().
	Retry retry.Policy

	// Logger for structured diagnostics. Defaults to discarding output.
	Logger *slog.Logger

	// Registerer, when set, receives the retry counters.
	Registerer prometheus.Registerer
}

// LoadConfig builds a Config from the environment. Each named file is loaded
// into the environment first with godotenv; variables already set are not
// overridden. With no files, a ".env" in the working directory is loaded if
// present. Missing client credentials are a ConfigError.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, &pkgerrs.ConfigError{Field: "env", Message: "failed to load env file: " + err.Error()}
		}
	}

	cfg := &Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		UserAgent:    os.Getenv(EnvUserAgent),
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or malformed field.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return &pkgerrs.ConfigError{Field: "ClientID", Message: EnvClientID + " is required"}
	}
	if c.ClientSecret == "" {
		return &pkgerrs.ConfigError{Field: "ClientSecret", Message: EnvClientSecret + " is required"}
	}
	if (c.Username == "") != (c.Password == "") {
		return &pkgerrs.ConfigError{Field: "Username", Message: "username and password must be set together"}
	}
	if c.UserAgent != "" {
		if err := internal.NewValidator().ValidateUserAgent(c.UserAgent); err != nil {
			return err
		}
	}
	return nil
}

// withDefaults returns a copy of c with empty optional fields filled in.
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Retry == (retry.Policy{}) {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &cfg
}
