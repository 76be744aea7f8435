// Package auth implements the authorization core: evaluating session
// tokens against the credential store and refreshing stale Spotify
// access tokens on demand.
package auth

import (
	"context"

	"github.com/avelat/melodex/internal/model"
)

// Rejection reasons surfaced to clients by the gates.
const (
	ReasonNoToken      = "no token"
	ReasonInvalidToken = "invalid token"
	ReasonTokenExpired = "token expired"
	ReasonUserNotFound = "user not found"
	ReasonLookupFailed = "user lookup failed"
)

// Status is the request-scoped outcome of evaluating a session token.
// It is derived per request and never persisted.
//
// Exactly one of these shapes occurs:
//   - Valid: user attached, TokenExpired reflects Spotify token staleness.
//   - JWTExpired (NeedsLogin false): the session token was authentic but
//     past its 7-day lifetime.
//   - NeedsLogin: anything else; the client must restart the flow.
type Status struct {
	Valid        bool
	NeedsLogin   bool
	JWTExpired   bool
	TokenExpired bool
	Reason       string
	UserID       uint64
	User         *model.User
}

// unexported, collision-proof context key
type statusContextKeyType struct{}

var statusKey = statusContextKeyType{}

// WithStatus returns a context carrying the evaluated status. Gates
// thread the status forward through the request context instead of
// mutating shared per-request state.
func WithStatus(ctx context.Context, st Status) context.Context {
	return context.WithValue(ctx, statusKey, st)
}

// StatusFromContext extracts the status attached by a gate.
func StatusFromContext(ctx context.Context) (Status, bool) {
	st, ok := ctx.Value(statusKey).(Status)
	return st, ok
}
