// Package store persists the client credential set: the access token, the
// refresh token, and the cached user projection. The three keys always move
// together: Save/SaveUser overwrite wholesale and Clear removes all of
// them, so a reader can never observe a partially torn-down session.
//
// Reads are forgiving: an absent or unreadable key reports "not present"
// rather than an error, because callers treat missing credentials as the
// unauthenticated state, not as a failure.
package store

import "context"

// TokenPair is the opaque credential pair issued by the backend on login,
// register, and refresh. ExpiresIn is advisory (seconds) and may be zero.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// CachedUser is the serialized user projection written alongside the token
// pair. It is a display hint for a second process/tab reconstructing UI
// state before the backend init check resolves; it is never an authorization
// source of truth.
type CachedUser struct {
	Authenticated bool   `json:"isAuthenticated"`
	Role          string `json:"role,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Name          string `json:"name,omitempty"`
}

// Store is the durable credential storage shared by every "tab" of the same
// profile. Implementations must make Clear idempotent and must keep the
// token pair and cached user under the same clearing scope.
type Store interface {
	// Save overwrites the persisted token pair. Last write wins; the
	// backend reissues credentials wholesale, never partially.
	Save(ctx context.Context, pair TokenPair) error

	// SaveUser overwrites the cached user projection.
	SaveUser(ctx context.Context, user CachedUser) error

	// Clear removes the token pair and the cached user. Clearing an
	// already-empty store is a no-op, not an error.
	Clear(ctx context.Context) error

	// AccessToken returns the persisted access token, or "" when absent.
	AccessToken(ctx context.Context) string

	// RefreshToken returns the persisted refresh token, or "" when absent.
	RefreshToken(ctx context.Context) string

	// CachedUser returns the cached user projection and whether one was
	// present and decodable.
	CachedUser(ctx context.Context) (CachedUser, bool)
}
