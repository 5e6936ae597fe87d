package edusession

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edusoft/edusession/store"
)

// State is the per-process (per "tab") holder of the current [User]
// projection: the auth context every screen reads and the guard decides
// against. One State is constructed by [Builder.Build] and passed down by
// injection.
//
// A State starts initializing: guard decisions are not trusted until
// [State.Init] resolves the persisted token against the backend.
type State struct {
	client  *Client
	store   store.Store
	metrics *Metrics

	mu           sync.RWMutex
	user         User
	initializing bool
	advisory     bool
	epoch        string
}

func newState(client *Client, st store.Store, metrics *Metrics) *State {
	return &State{
		client:       client,
		store:        st,
		metrics:      metrics,
		user:         Anonymous(),
		initializing: true,
		epoch:        uuid.NewString(),
	}
}

// Current returns the in-memory user projection.
func (s *State) Current() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Initializing reports whether the startup token validation is still
// pending. Protected content must not render while this is true.
func (s *State) Initializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

// Advisory reports whether the current user was adopted from the shared
// cache rather than confirmed by the backend. Advisory users are display
// hints; Init supersedes them.
func (s *State) Advisory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.advisory
}

// Epoch identifies the current session generation. It advances on every
// transition to the unauthenticated state, so an async result captured
// under an older epoch can be recognized as stale and dropped.
func (s *State) Epoch() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Init resolves the persisted credentials into a confirmed session state:
// no token resolves to the anonymous sentinel; a token is validated via
// GET /auth/me, restoring the session on success and clearing the store on
// rejection. A transient network failure keeps any advisory user and
// leaves the persisted credentials alone so a later retry can succeed.
//
// Init owns the initializing flag: it is lowered exactly once, whatever
// the outcome, and a logout that races the backend call wins (the stale
// result is dropped by epoch comparison).
func (s *State) Init(ctx context.Context) (User, error) {
	if s.client == nil {
		return Anonymous(), ErrClientNotReady
	}

	start := time.Now()
	epoch := s.Epoch()

	user, err := s.client.CurrentUser(withEpoch(ctx, epoch))
	s.metrics.Observe(MetricInitLatency, time.Since(start))

	switch {
	case err == nil:
		if !s.apply(epoch, user, false) {
			s.metrics.Inc(MetricStaleResultDropped)
			return Anonymous(), nil
		}
		if err := s.store.SaveUser(ctx, user.CachedUser()); err != nil {
			log.Print("edusession: cached user write failed")
		}
		s.metrics.Inc(MetricInitAuthenticated)
		return user, nil

	case errors.Is(err, ErrNetwork):
		// Indeterminate: keep whatever the tab already shows, but stop
		// gating the UI forever on an unreachable backend.
		s.finishInitializing()
		return s.Current(), err

	default:
		// Unauthenticated, expired, or server rejection: the client has
		// already cleared the store; settle on the sentinel.
		if !s.apply(epoch, Anonymous(), false) {
			s.metrics.Inc(MetricStaleResultDropped)
		}
		s.metrics.Inc(MetricInitUnauthenticated)
		return Anonymous(), err
	}
}

// AdoptLogin installs the user returned by a successful login or register
// call: a UI-state mutation only, the network side effects already
// happened inside [Client]. The cached-user key is re-serialized so a
// second tab or a reload can optimistically reconstruct UI state.
func (s *State) AdoptLogin(ctx context.Context, user User) error {
	if !user.Authenticated || !user.Complete() {
		return errors.New("edusession: cannot adopt incomplete user")
	}

	s.mu.Lock()
	s.user = user
	s.initializing = false
	s.advisory = false
	s.mu.Unlock()

	if err := s.store.SaveUser(ctx, user.CachedUser()); err != nil {
		log.Print("edusession: cached user write failed")
		return err
	}
	return nil
}

// AdoptRegister installs the user returned by a successful registration.
// Registration logs the account in, so the semantics match [State.AdoptLogin].
func (s *State) AdoptRegister(ctx context.Context, user User) error {
	return s.AdoptLogin(ctx, user)
}

// AdoptCached installs a cached user claim as the advisory projection.
// Used by the guard when this tab is unauthenticated but the shared store
// says another tab logged in. Returns false when the claim is unusable or
// the tab already holds a confirmed user.
func (s *State) AdoptCached(c store.CachedUser) bool {
	user := UserFromCache(c)
	if !user.Authenticated || !user.Complete() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user.Authenticated && !s.advisory {
		return false
	}
	s.user = user
	s.advisory = true
	s.metrics.Inc(MetricCacheAdopted)
	return true
}

// Logout tears the session down: best-effort server notification, store
// clearing, and an unconditional reset to the anonymous sentinel. The
// epoch advances first so in-flight responses cannot resurrect the
// session.
func (s *State) Logout(ctx context.Context) {
	epoch := s.Epoch()
	s.Reset()

	if s.client != nil {
		s.client.Logout(withEpoch(ctx, epoch))
	}
}

// Reset returns the in-memory projection to the anonymous sentinel and
// advances the epoch, without touching the backend or the store. [State.Logout]
// is the full teardown.
func (s *State) Reset() {
	s.mu.Lock()
	s.user = Anonymous()
	s.initializing = false
	s.advisory = false
	s.epoch = uuid.NewString()
	s.mu.Unlock()
}

// CachedClaim reads the shared store's cached user projection, the claim a
// second tab reconciles against before its own init check resolves.
func (s *State) CachedClaim(ctx context.Context) (store.CachedUser, bool) {
	if s.store == nil {
		return store.CachedUser{}, false
	}
	return s.store.CachedUser(ctx)
}

// RecordGuard counts a guard decision on the shared metrics instance.
func (s *State) RecordGuard(id MetricID) {
	s.metrics.Inc(id)
}

// apply installs user if the epoch has not moved since the caller captured
// it. Reports whether the result was applied.
func (s *State) apply(epoch string, user User, advisory bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return false
	}
	s.user = user
	s.advisory = advisory
	s.initializing = false
	return true
}

func (s *State) finishInitializing() {
	s.mu.Lock()
	s.initializing = false
	s.mu.Unlock()
}
