package edusession

import "context"

type deviceIDContextKey struct{}
type clientTagContextKey struct{}
type epochContextKey struct{}

// WithDeviceID attaches a stable device identifier to ctx. The Client sends
// it as the X-Device-Id header so the backend can correlate sessions opened
// from the same installation.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

// WithClientTag attaches a free-form client tag (e.g. the hosting screen)
// to ctx. Sent as the X-Client-Tag header and copied into audit metadata.
func WithClientTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, clientTagContextKey{}, tag)
}

// withEpoch tags ctx with the session generation the caller acted under,
// so audit events can be correlated with one lifetime of the session.
func withEpoch(ctx context.Context, epoch string) context.Context {
	return context.WithValue(ctx, epochContextKey{}, epoch)
}

func epochFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	epoch, _ := ctx.Value(epochContextKey{}).(string)
	return epoch
}

func deviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(deviceIDContextKey{}).(string)
	return id
}

func clientTagFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	tag, _ := ctx.Value(clientTagContextKey{}).(string)
	return tag
}
