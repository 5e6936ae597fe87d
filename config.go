package edusession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines the tunable surface of the session client. Instances are
// configured before [Builder.Build] and treated as immutable afterwards.
type Config struct {
	Backend   BackendConfig
	Transport TransportConfig
	Throttle  ThrottleConfig
	Refresh   RefreshConfig
	Store     StoreConfig
	Assistant AssistantConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the platform REST backend.
type BackendConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.school.example".
	// Auth endpoints are resolved beneath it (/auth/login/password, ...).
	BaseURL string
	// UserAgent is sent on every request. Defaults to "edusession/1".
	UserAgent string
	// RequestTimeout bounds one round-trip including body read.
	RequestTimeout time.Duration
	// AllowInsecureBaseURL permits a plain-http BaseURL. Meant for local
	// development only; Validate rejects http otherwise.
	AllowInsecureBaseURL bool
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig tunes the outbound HTTP client.
type TransportConfig struct {
	// HardenOutbound builds the HTTP client through safeurl, blocking
	// private, loopback, link-local, and metadata destinations. Intended
	// for hosts where BaseURL is operator-supplied.
	HardenOutbound bool
	// MaxResponseBytes caps how much of a response body is read. Zero
	// means the default cap.
	MaxResponseBytes int64
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig bounds client-side login attempts. This is a local
// courtesy limit in front of the backend's real limiter: it stops a retry
// loop in the UI host from hammering the login endpoint.
type ThrottleConfig struct {
	Enabled          bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls transparent access-token renewal.
type RefreshConfig struct {
	// Ahead renews the access token when its (advisory) expiry is within
	// this window before an authenticated call. Zero disables renewal
	// ahead of expiry; 401-driven renewal still applies.
	Ahead time.Duration
	// RetryOnUnauthorized retries an authenticated call once after a 401
	// by exchanging the refresh token. When the exchange fails the store
	// is cleared and the call fails with ErrSessionExpired.
	RetryOnUnauthorized bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig applies when the credential store is built by the Builder
// (file default, Redis via [Builder.WithRedis]).
type StoreConfig struct {
	// ProfileDir is the directory for the file store. Defaults to
	// ".edusession" under the working directory.
	ProfileDir string
	// RedisPrefix scopes the Redis keys of one profile.
	RedisPrefix string
	// RedisTTL optionally expires abandoned credential sets. Zero keeps
	// them until logout or invalidation.
	RedisTTL time.Duration
}

/*
====================================
ASSISTANT CONFIG
====================================
*/

// AssistantConfig locates the learning-assistant proxy and tunes stream
// cleanup.
type AssistantConfig struct {
	// Path is the chat endpoint beneath BaseURL.
	Path string
	// MaxSuggestedQuestions caps how many extracted follow-up questions a
	// cleaned stream reports.
	MaxSuggestedQuestions int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async session-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the emitting call when
	// the buffer is full. Dropped counts are observable via
	// [Client.AuditDropped].
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. BaseURL must still be
// set by the caller; Validate enforces it.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			UserAgent:      "edusession/1",
			RequestTimeout: 15 * time.Second,
		},
		Transport: TransportConfig{
			MaxResponseBytes: 1 << 20,
		},
		Throttle: ThrottleConfig{
			Enabled:          true,
			MaxLoginAttempts: 5,
			LoginCooldown:    time.Minute,
		},
		Refresh: RefreshConfig{
			Ahead:               30 * time.Second,
			RetryOnUnauthorized: true,
		},
		Store: StoreConfig{
			ProfileDir:  ".edusession",
			RedisPrefix: "edusession",
		},
		Assistant: AssistantConfig{
			Path:                  "/assistant/chat",
			MaxSuggestedQuestions: 3,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values that would produce a client
// unable to honor its contract.
func (c Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("edusession: Backend.BaseURL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return errors.New("edusession: Backend.BaseURL is not a valid URL")
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !c.Backend.AllowInsecureBaseURL {
			return errors.New("edusession: plain-http BaseURL requires AllowInsecureBaseURL")
		}
	default:
		return errors.New("edusession: Backend.BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("edusession: Backend.BaseURL has no host")
	}

	if c.Backend.RequestTimeout <= 0 {
		return errors.New("edusession: Backend.RequestTimeout must be positive")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxLoginAttempts <= 0 {
			return errors.New("edusession: Throttle.MaxLoginAttempts must be positive")
		}
		if c.Throttle.LoginCooldown <= 0 {
			return errors.New("edusession: Throttle.LoginCooldown must be positive")
		}
	}
	if c.Refresh.Ahead < 0 {
		return errors.New("edusession: Refresh.Ahead must not be negative")
	}
	if c.Assistant.Path != "" && !strings.HasPrefix(c.Assistant.Path, "/") {
		return errors.New("edusession: Assistant.Path must start with /")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("edusession: Audit.BufferSize must be positive")
	}
	return nil
}

// endpoint resolves a backend path against BaseURL.
func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + path
}
