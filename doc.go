// Package edusession implements the client-side session engine for the
// school teaching-assistant platform: credential persistence, backend-backed
// session validation, an injectable per-process auth state, and role-gated
// route guarding.
//
// The package is designed for event-driven UI hosts: [Client] and [State]
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// edusession is the public surface. It exposes [Client], [State], [Builder],
// [Config], and value types (User, TokenPair, AuditEvent, MetricsSnapshot).
// Credential persistence lives in the store subpackage, route authorization
// in guard, assistant stream post-processing in assistant, and HTTP plumbing
// under internal/.
//
// # What this package must NOT do
//
//   - Mint or verify credentials: both tokens are opaque values issued by
//     the backend; the only local inspection is an unverified expiry read.
//   - Keep ambient globals: one Client/State pair is constructed at startup
//     and passed down by injection.
//   - Leave partial credentials behind: every transition to the
//     unauthenticated state clears the access token, the refresh token, and
//     the cached user together.
//
// # Session contract
//
// Logout and any backend rejection of the stored token are terminal for the
// local session: the store is cleared before the caller sees the result, so
// a dangling token-less state is the only reachable failure state. Route
// guard decisions are only trusted after [State.Init] resolves.
package edusession
