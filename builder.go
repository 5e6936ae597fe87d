package edusession

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/edusoft/edusession/internal/transport"
	"github.com/edusoft/edusession/store"
)

// Builder wires a [Client] and its [State] from a [Config] plus optional
// dependencies. Construction is allocation-only; no I/O happens before the
// first Client call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store      store.Store
	httpClient *http.Client
	auditSink  AuditSink

	built bool
}

// New creates a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the backend origin, keeping the rest of the config.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Backend.BaseURL = baseURL
	return b
}

// WithRedis selects the Redis credential store backend, scoped by
// [StoreConfig].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore injects a fully constructed credential store, overriding both
// the file default and WithRedis.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithHTTPClient injects the outbound HTTP client, bypassing the transport
// defaults (and TransportConfig hardening). Meant for tests and hosts with
// their own client policy.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink sets the sink receiving session lifecycle events. Enables
// auditing when a non-nil sink is given.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the Client/State pair.
// A Builder builds at most once.
func (b *Builder) Build() (*Client, *State, error) {
	if b.built {
		return nil, nil, errors.New("edusession: builder already used")
	}
	if err := b.config.Validate(); err != nil {
		return nil, nil, err
	}

	credStore := b.store
	if credStore == nil && b.redis != nil {
		credStore = store.NewRedis(b.redis, b.config.Store.RedisPrefix, b.config.Store.RedisTTL)
	}
	if credStore == nil {
		fileStore, err := store.NewFile(b.config.Store.ProfileDir)
		if err != nil {
			return nil, nil, err
		}
		credStore = fileStore
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = transport.NewClient(transport.Options{
			Timeout:   b.config.Backend.RequestTimeout,
			Harden:    b.config.Transport.HardenOutbound,
			UserAgent: b.config.Backend.UserAgent,
		})
	}

	metrics := NewMetrics(b.config.Metrics)

	var throttle *rate.Limiter
	if b.config.Throttle.Enabled {
		// Burst of MaxLoginAttempts, refilling over one cooldown window.
		per := b.config.Throttle.LoginCooldown / time.Duration(b.config.Throttle.MaxLoginAttempts)
		throttle = rate.NewLimiter(rate.Every(per), b.config.Throttle.MaxLoginAttempts)
	}

	client := &Client{
		cfg:      b.config,
		http:     httpClient,
		store:    credStore,
		metrics:  metrics,
		audit:    newAuditDispatcher(b.config.Audit, b.auditSink),
		throttle: throttle,
	}

	b.built = true
	return client, newState(client, credStore, metrics), nil
}
