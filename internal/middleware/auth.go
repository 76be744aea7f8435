package middleware // middleware provides the authorization gates wrapping protected routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avelat/melodex/internal/auth"
)

// refreshFailedMessage is part of the client contract: the frontend
// matches on it to restart the authorization flow.
const refreshFailedMessage = "Token refresh failed - please re-authenticate"

// rejection is the 401 body emitted by the blocking gates.
type rejection struct {
	Valid      bool   `json:"valid"`
	NeedsLogin bool   `json:"needsLogin"`
	Error      string `json:"error"`
	JWTExpired bool   `json:"jwtExpired,omitempty"`
}

// bearerToken extracts the session token from the Authorization header,
// returning "" when absent.
func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// attachStatus threads the evaluated status into the request context so
// handlers and later gate stages read an explicit value instead of
// shared mutable request state.
func attachStatus(c echo.Context, st auth.Status) {
	req := c.Request()
	c.SetRequest(req.WithContext(auth.WithStatus(req.Context(), st)))
}

// RequireSession is the strict gate: any non-valid evaluation
// short-circuits the request with 401 and a structured body. On success
// the status (with the bound user) is attached to the request context.
func RequireSession(ev *auth.Evaluator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := ev.Evaluate(c.Request().Context(), bearerToken(c))
			if !st.Valid {
				return c.JSON(http.StatusUnauthorized, rejection{
					NeedsLogin: st.NeedsLogin,
					Error:      st.Reason,
					JWTExpired: st.JWTExpired,
				})
			}
			attachStatus(c, st)
			return next(c)
		}
	}
}

// SessionStatus is the non-blocking gate: it always lets the request
// through and attaches whatever status was computed, so handlers can
// answer "am I logged in" without forcing an error response.
func SessionStatus(ev *auth.Evaluator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			attachStatus(c, ev.Evaluate(c.Request().Context(), bearerToken(c)))
			return next(c)
		}
	}
}

// RequireFreshToken composes the strict gate with an on-demand refresh:
// when the stored Spotify token is stale it is refreshed and the status
// in context is replaced with the fresh record before the handler runs.
// Every route that calls the Spotify API sits behind this gate, so
// handlers always receive a usable access token. A failed refresh
// terminates the request with 401 needsLogin.
func RequireFreshToken(ev *auth.Evaluator, rf *auth.Refresher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := ev.Evaluate(c.Request().Context(), bearerToken(c))
			if !st.Valid {
				return c.JSON(http.StatusUnauthorized, rejection{
					NeedsLogin: st.NeedsLogin,
					Error:      st.Reason,
					JWTExpired: st.JWTExpired,
				})
			}
			if st.TokenExpired {
				fresh, err := rf.Refresh(c.Request().Context(), st.User)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, rejection{
						NeedsLogin: true,
						Error:      refreshFailedMessage,
					})
				}
				st.User = fresh
				st.TokenExpired = false
			}
			attachStatus(c, st)
			return next(c)
		}
	}
}
