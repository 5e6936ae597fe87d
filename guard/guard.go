// Package guard gates HTTP handler subtrees behind the session state:
// unauthenticated visitors are redirected to the login entry point, wrong
// roles to the home entry point, and everyone else is served with the
// confirmed user in the request context.
package guard

import (
	"context"
	"net/http"

	edusession "github.com/edusoft/edusession"
)

type userContextKey struct{}

// UserFromContext returns the user installed by [Protect] for the current
// request.
func UserFromContext(ctx context.Context) (edusession.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(edusession.User)
	return user, ok
}

// Options locates the guard's redirect targets.
type Options struct {
	// LoginPath receives unauthenticated visitors. Defaults to "/login".
	LoginPath string
	// HomePath receives authenticated visitors whose role does not match.
	// Defaults to "/".
	HomePath string
	// InitializingStatus is sent while the startup token validation is
	// still pending, instead of rendering protected content on an
	// unconfirmed state. Defaults to 503 with a Retry-After hint.
	InitializingStatus int
}

func (o Options) withDefaults() Options {
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.HomePath == "" {
		o.HomePath = "/"
	}
	if o.InitializingStatus == 0 {
		o.InitializingStatus = http.StatusServiceUnavailable
	}
	return o
}

// Protect wraps next behind an authentication check, and a role check when
// requiredRole is non-empty.
//
// Reconciliation path: a tab that starts unauthenticated while the shared
// store holds a cached user claiming an authenticated session (another tab
// logged in) adopts that claim instead of redirecting. The adopted user is
// advisory, a display hint only, and is superseded the moment
// [edusession.State.Init] resolves the real check.
func Protect(state *edusession.State, requiredRole edusession.Role, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if state == nil {
				http.Redirect(w, r, opts.LoginPath, http.StatusSeeOther)
				return
			}

			user := state.Current()

			if !user.Authenticated {
				if cached, ok := state.CachedClaim(r.Context()); ok && state.AdoptCached(cached) {
					user = state.Current()
				}
			}

			if !user.Authenticated {
				if state.Initializing() {
					// Init still pending and no cached claim either way:
					// don't render, don't redirect a user who may well be
					// logged in.
					w.Header().Set("Retry-After", "1")
					http.Error(w, "session initializing", opts.InitializingStatus)
					return
				}
				state.RecordGuard(edusession.MetricGuardRedirectLogin)
				http.Redirect(w, r, opts.LoginPath, http.StatusSeeOther)
				return
			}

			if requiredRole != "" && user.Role != requiredRole {
				state.RecordGuard(edusession.MetricGuardRedirectHome)
				http.Redirect(w, r, opts.HomePath, http.StatusSeeOther)
				return
			}

			state.RecordGuard(edusession.MetricGuardAllowed)
			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
