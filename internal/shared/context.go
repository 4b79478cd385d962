package shared

import "context"

// sessionContextKey is unexported so only this package can attach sessions.
type sessionContextKey struct{}

// ContextWithSession returns a child context carrying the session. The
// session middleware sets it once per request.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the request's session, or nil for anonymous
// requests.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
