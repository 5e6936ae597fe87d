package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps write failures against the Redis backend.
var ErrRedisUnavailable = errors.New("store: redis unavailable")

const (
	accessSuffix  = ":access"
	refreshSuffix = ":refresh"
	userSuffix    = ":user"
)

// Redis is a Store keyed under a per-profile prefix, for deployments where
// several client hosts share one credential set (kiosk rows, lab machines).
// An optional TTL bounds how long an abandoned session lingers; zero means
// no expiry, matching the backend-driven invalidation model.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. prefix scopes one profile; the
// default is "edusession".
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "edusession"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Save overwrites both token keys in one pipeline round-trip.
func (r *Redis) Save(ctx context.Context, pair TokenPair) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefix+accessSuffix, pair.AccessToken, r.ttl)
	pipe.Set(ctx, r.prefix+refreshSuffix, pair.RefreshToken, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}

// SaveUser overwrites the cached user projection.
func (r *Redis) SaveUser(ctx context.Context, user CachedUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+userSuffix, data, r.ttl).Err(); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}

// Clear deletes all three keys. Deleting absent keys is a no-op.
func (r *Redis) Clear(ctx context.Context) error {
	keys := []string{
		r.prefix + accessSuffix,
		r.prefix + refreshSuffix,
		r.prefix + userSuffix,
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}

// AccessToken returns the persisted access token, or "" when absent or when
// Redis cannot be reached (an unreachable store reads as logged-out).
func (r *Redis) AccessToken(ctx context.Context) string {
	return r.get(ctx, r.prefix+accessSuffix)
}

// RefreshToken returns the persisted refresh token, or "" when absent.
func (r *Redis) RefreshToken(ctx context.Context) string {
	return r.get(ctx, r.prefix+refreshSuffix)
}

// CachedUser returns the cached user projection, if present and decodable.
func (r *Redis) CachedUser(ctx context.Context) (CachedUser, bool) {
	data, err := r.client.Get(ctx, r.prefix+userSuffix).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Print("edusession: redis cached-user read failed")
		}
		return CachedUser{}, false
	}

	var user CachedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return CachedUser{}, false
	}
	return user, true
}

func (r *Redis) get(ctx context.Context, key string) string {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Print("edusession: redis token read failed")
		}
		return ""
	}
	return val
}
