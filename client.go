package edusession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/edusoft/edusession/api"
	"github.com/edusoft/edusession/assistant"
	"github.com/edusoft/edusession/internal/transport"
	"github.com/edusoft/edusession/store"
)

const (
	pathLogin    = "/auth/login/password"
	pathRegister = "/auth/register"
	pathMe       = "/auth/me"
	pathLogout   = "/auth/logout"
	pathRefresh  = "/auth/refresh"
)

// Client is the session service: the only component that talks to the
// backend auth endpoints and the only writer of the credential store. It
// translates backend responses into [User] values and the typed error
// taxonomy.
//
// Client instances are configured through [Builder.Build] and then treated
// as immutable.
type Client struct {
	cfg      Config
	http     *http.Client
	store    store.Store
	metrics  *Metrics
	audit    *auditDispatcher
	throttle *rate.Limiter
}

// Close releases background resources (the audit dispatcher).
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// Store exposes the credential store the client writes. Shared with the
// guard for cached-user reconciliation.
func (c *Client) Store() store.Store {
	if c == nil {
		return nil
	}
	return c.store
}

// Assistant returns a chat client for the learning-assistant proxy,
// sharing the session's transport and credential store.
func (c *Client) Assistant() *assistant.Client {
	if c == nil {
		return nil
	}
	return assistant.NewClient(
		c.http,
		c.cfg.endpoint(c.cfg.Assistant.Path),
		c.store,
		c.cfg.Assistant.MaxSuggestedQuestions,
	)
}

// API returns the typed resource clients (classes, accounts, assignments,
// resources, logs), sharing the session's transport and credential store.
func (c *Client) API() *api.Client {
	if c == nil {
		return nil
	}
	return api.New(c.http, c.cfg.Backend.BaseURL, c.store)
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// LoginWithPassword authenticates phone+password against the backend. On
// success the returned token pair is persisted and the normalized [User]
// is returned; the in-memory projection is updated by the caller through
// [State.AdoptLogin].
//
// Failures map to ErrLoginThrottled (local), ErrInvalidCredentials (401,
// 403), ErrNetwork, or ErrServer.
func (c *Client) LoginWithPassword(ctx context.Context, phone, password string) (User, error) {
	if c == nil || c.http == nil || c.store == nil {
		return Anonymous(), ErrClientNotReady
	}
	if c.throttle != nil && !c.throttle.Allow() {
		c.metricInc(MetricLoginThrottled)
		c.emitAudit(ctx, "login_throttled", false, phone, "", ErrLoginThrottled, nil)
		return Anonymous(), authErr(ErrLoginThrottled, 0, "")
	}

	body := map[string]string{"phone": phone, "password": password}
	resp, data, err := c.postJSON(ctx, c.cfg.endpoint(pathLogin), body, "")
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, "", err, nil)
		return Anonymous(), authErr(ErrNetwork, 0, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, "", ErrInvalidCredentials, nil)
		return Anonymous(), authErr(ErrInvalidCredentials, resp.StatusCode, backendMessage(data))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, "", ErrServer, func() map[string]string {
			return map[string]string{"status": resp.Status}
		})
		return Anonymous(), authErr(ErrServer, resp.StatusCode, backendMessage(data))
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, "", ErrServer, func() map[string]string {
			return map[string]string{"reason": "malformed_session_payload"}
		})
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "malformed session payload")
	}

	user := envelope.User.user()
	if envelope.Token == "" || !user.Complete() {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, "", ErrServer, func() map[string]string {
			return map[string]string{"reason": "incomplete_session_payload"}
		})
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "incomplete session payload")
	}

	pair := TokenPair{
		AccessToken:  envelope.Token,
		RefreshToken: envelope.RefreshToken,
		ExpiresIn:    envelope.ExpiresIn,
	}
	if err := c.store.Save(ctx, pair); err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, "login_failure", false, phone, string(user.Role), err, func() map[string]string {
			return map[string]string{"reason": "credential_persist_failed"}
		})
		return Anonymous(), authErr(ErrServer, 0, "credential persistence failed")
	}
	if err := c.store.SaveUser(ctx, user.CachedUser()); err != nil {
		log.Print("edusession: cached user write failed")
	}

	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, "login_success", true, phone, string(user.Role), nil, nil)
	return user, nil
}

// Register creates an account and, like login, persists the returned token
// pair. Backend input rejections (duplicate phone, malformed fields: 400,
// 409, 422) map to ErrValidation.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if c == nil || c.http == nil || c.store == nil {
		return Anonymous(), ErrClientNotReady
	}
	if !req.Role.Valid() {
		return Anonymous(), authErr(ErrValidation, 0, "unknown role")
	}

	resp, data, err := c.postJSON(ctx, c.cfg.endpoint(pathRegister), req, "")
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, "register_failure", false, req.Phone, string(req.Role), err, nil)
		return Anonymous(), authErr(ErrNetwork, 0, err.Error())
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, "register_failure", false, req.Phone, string(req.Role), ErrValidation, nil)
		return Anonymous(), authErr(ErrValidation, resp.StatusCode, backendMessage(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, "register_failure", false, req.Phone, string(req.Role), ErrServer, nil)
		return Anonymous(), authErr(ErrServer, resp.StatusCode, backendMessage(data))
	}

	var envelope sessionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.metricInc(MetricRegisterFailure)
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "malformed session payload")
	}

	user := envelope.User.user()
	if envelope.Token == "" || !user.Complete() {
		c.metricInc(MetricRegisterFailure)
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "incomplete session payload")
	}

	pair := TokenPair{
		AccessToken:  envelope.Token,
		RefreshToken: envelope.RefreshToken,
		ExpiresIn:    envelope.ExpiresIn,
	}
	if err := c.store.Save(ctx, pair); err != nil {
		c.metricInc(MetricRegisterFailure)
		return Anonymous(), authErr(ErrServer, 0, "credential persistence failed")
	}
	if err := c.store.SaveUser(ctx, user.CachedUser()); err != nil {
		log.Print("edusession: cached user write failed")
	}

	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, "register_success", true, req.Phone, string(req.Role), nil, nil)
	return user, nil
}

// CurrentUser validates the persisted access token against GET /auth/me
// and returns the confirmed [User]. A missing token or a backend rejection
// clears the store and fails with ErrUnauthenticated (or ErrSessionExpired
// when a transparent refresh was attempted and its token was rejected
// too). Transient network failures leave the store untouched.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if c == nil || c.http == nil || c.store == nil {
		return Anonymous(), ErrClientNotReady
	}

	token := c.store.AccessToken(ctx)
	if token == "" {
		c.clearSession(ctx, "missing_token")
		return Anonymous(), authErr(ErrUnauthenticated, 0, "no access token")
	}

	token = c.refreshAhead(ctx, token)

	user, err := c.fetchMe(ctx, token)
	if err == nil {
		c.metricInc(MetricCurrentUserSuccess)
		return user, nil
	}

	authFailure, ok := err.(*AuthError)
	if !ok || authFailure.Status != http.StatusUnauthorized {
		return Anonymous(), err
	}

	// Rejected token: try one refresh-and-retry before giving up.
	if c.cfg.Refresh.RetryOnUnauthorized && c.store.RefreshToken(ctx) != "" {
		pair, refreshErr := c.Refresh(ctx)
		if refreshErr != nil {
			if errors.Is(refreshErr, ErrSessionExpired) {
				c.metricInc(MetricCurrentUserRejected)
			}
			return Anonymous(), refreshErr
		}
		user, err = c.fetchMe(ctx, pair.AccessToken)
		if err == nil {
			c.metricInc(MetricCurrentUserSuccess)
			return user, nil
		}
		// The retried lookup can fail for reasons other than the fresh
		// token being rejected. Only a second 401 invalidates the pair;
		// network and server failures keep it for the next attempt.
		if retry, ok := err.(*AuthError); !ok || retry.Status != http.StatusUnauthorized {
			return Anonymous(), err
		}
	}

	c.metricInc(MetricCurrentUserRejected)
	c.clearSession(ctx, "token_rejected")
	c.emitAudit(ctx, "token_rejected", false, "", "", ErrUnauthenticated, nil)
	return Anonymous(), authErr(ErrUnauthenticated, http.StatusUnauthorized, backendErrMessage(err))
}

// Logout posts the best-effort server invalidation and unconditionally
// clears the credential store. It never fails: a backend that cannot be
// reached is not allowed to leave stale local credentials behind.
func (c *Client) Logout(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	if c.http != nil {
		if token := c.store.AccessToken(ctx); token != "" {
			resp, _, err := c.postJSON(ctx, c.cfg.endpoint(pathLogout), struct{}{}, token)
			if err != nil {
				log.Print("edusession: server logout notification failed")
			} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
				log.Print("edusession: server logout rejected")
			}
		}
	}

	c.clearSession(ctx, "logout")
	c.metricInc(MetricLogout)
	c.emitAudit(ctx, "logout", true, "", "", nil, nil)
}

// Refresh exchanges the persisted refresh token for a new pair and
// persists it. A missing or rejected refresh token clears the store
// entirely and fails with ErrSessionExpired: the token-less state is the
// only safe terminal state. A transient network failure is surfaced as
// ErrNetwork without clearing, so a flaky connection cannot log the user
// out.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	if c == nil || c.http == nil || c.store == nil {
		return TokenPair{}, ErrClientNotReady
	}

	refresh := c.store.RefreshToken(ctx)
	if refresh == "" {
		c.metricInc(MetricRefreshFailure)
		c.clearSession(ctx, "missing_refresh_token")
		c.emitAudit(ctx, "refresh_failure", false, "", "", ErrSessionExpired, nil)
		return TokenPair{}, authErr(ErrSessionExpired, 0, "no refresh token")
	}

	body := map[string]string{"refreshToken": refresh}
	resp, data, err := c.postJSON(ctx, c.cfg.endpoint(pathRefresh), body, "")
	if err != nil {
		c.metricInc(MetricRefreshFailure)
		return TokenPair{}, authErr(ErrNetwork, 0, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metricInc(MetricRefreshFailure)
		c.clearSession(ctx, "refresh_rejected")
		c.emitAudit(ctx, "refresh_failure", false, "", "", ErrSessionExpired, func() map[string]string {
			return map[string]string{"status": resp.Status}
		})
		return TokenPair{}, authErr(ErrSessionExpired, resp.StatusCode, backendMessage(data))
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil || pair.AccessToken == "" {
		c.metricInc(MetricRefreshFailure)
		c.clearSession(ctx, "refresh_malformed")
		return TokenPair{}, authErr(ErrSessionExpired, resp.StatusCode, "malformed refresh payload")
	}

	if err := c.store.Save(ctx, pair); err != nil {
		c.metricInc(MetricRefreshFailure)
		return TokenPair{}, authErr(ErrServer, 0, "credential persistence failed")
	}

	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(ctx, "refresh_success", true, "", "", nil, nil)
	return pair, nil
}

// TokenExpiry reports the advisory expiry of the persisted access token,
// read from its unverified JWT claims. Opaque tokens report no expiry;
// verification is the backend's job, never the client's.
func (c *Client) TokenExpiry(ctx context.Context) (time.Time, bool) {
	if c == nil || c.store == nil {
		return time.Time{}, false
	}
	return tokenExpiry(c.store.AccessToken(ctx))
}

func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// refreshAhead renews the token when its advisory expiry falls inside the
// configured window. Best effort: any failure keeps the current token and
// lets the authenticated call decide.
func (c *Client) refreshAhead(ctx context.Context, token string) string {
	if c.cfg.Refresh.Ahead <= 0 {
		return token
	}
	exp, ok := tokenExpiry(token)
	if !ok || time.Until(exp) > c.cfg.Refresh.Ahead {
		return token
	}
	if c.store.RefreshToken(ctx) == "" {
		return token
	}

	pair, err := c.Refresh(ctx)
	if err != nil {
		return token
	}
	return pair.AccessToken
}

func (c *Client) fetchMe(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.endpoint(pathMe), nil)
	if err != nil {
		return Anonymous(), authErr(ErrNetwork, 0, err.Error())
	}
	c.decorate(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return Anonymous(), authErr(ErrNetwork, 0, err.Error())
	}
	defer resp.Body.Close()

	data, err := transport.ReadBody(resp, c.cfg.Transport.MaxResponseBytes)
	if err != nil {
		return Anonymous(), authErr(ErrNetwork, resp.StatusCode, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Anonymous(), authErr(ErrUnauthenticated, resp.StatusCode, backendMessage(data))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Anonymous(), authErr(ErrServer, resp.StatusCode, backendMessage(data))
	}

	var profile profileBody
	if err := json.Unmarshal(data, &profile); err != nil {
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "malformed profile payload")
	}

	user := profile.user()
	if !user.Complete() {
		return Anonymous(), authErr(ErrServer, resp.StatusCode, "incomplete profile payload")
	}
	return user, nil
}

// clearSession empties the credential store. Clearing an already-empty
// store is a no-op; a failing backend store is logged but cannot block the
// transition.
func (c *Client) clearSession(ctx context.Context, reason string) {
	if err := c.store.Clear(ctx); err != nil {
		log.Print("edusession: credential store clear failed (" + reason + ")")
		return
	}
	c.metricInc(MetricSessionCleared)
}

// postJSON sends a JSON POST, optionally bearer-authenticated, and returns
// the response plus its (capped) body.
func (c *Client) postJSON(ctx context.Context, url string, body any, token string) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := transport.ReadBody(resp, c.cfg.Transport.MaxResponseBytes)
	if err != nil {
		return nil, nil, err
	}
	return resp, data, nil
}

func (c *Client) decorate(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := deviceIDFromContext(req.Context()); id != "" {
		req.Header.Set("X-Device-Id", id)
	}
	if tag := clientTagFromContext(req.Context()); tag != "" {
		req.Header.Set("X-Client-Tag", tag)
	}
}

func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, phone, role string, failure error, metaFn func() map[string]string) {
	if c == nil || c.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Phone:     phone,
		Role:      role,
		Epoch:     epochFromContext(ctx),
		Success:   success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	if tag := clientTagFromContext(ctx); tag != "" {
		event.Metadata = map[string]string{"client_tag": tag}
	}
	if metaFn != nil {
		meta := metaFn()
		if event.Metadata == nil {
			event.Metadata = meta
		} else {
			for k, v := range meta {
				event.Metadata[k] = v
			}
		}
	}

	c.audit.Emit(ctx, event)
}

// backendMessage extracts the human-readable error from a backend body of
// either {"error": "..."} or {"message": "..."}.
func backendMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}

func backendErrMessage(err error) string {
	if authFailure, ok := err.(*AuthError); ok {
		return authFailure.Message
	}
	return ""
}
