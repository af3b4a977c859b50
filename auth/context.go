package auth

import "context"

type contextKey int

const (
	identityKey contextKey = iota
	errorListKey
	requestIDKey
	privilegedKey
)

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithErrorList attaches the request's error list.
func WithErrorList(ctx context.Context, l *ErrorList) context.Context {
	return context.WithValue(ctx, errorListKey, l)
}

// ErrorListFromContext returns the request's error list, or nil.
func ErrorListFromContext(ctx context.Context) *ErrorList {
	l, _ := ctx.Value(errorListKey).(*ErrorList)
	return l
}

// WithRequestID attaches a correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithPrivileged records whether the guarded operation passed its policy.
// It is false for anonymous callers admitted by "@null".
func WithPrivileged(ctx context.Context, ok bool) context.Context {
	return context.WithValue(ctx, privilegedKey, ok)
}

// PrivilegedFromContext reports the recorded policy outcome.
func PrivilegedFromContext(ctx context.Context) bool {
	ok, _ := ctx.Value(privilegedKey).(bool)
	return ok
}
