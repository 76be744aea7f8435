package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/handler"
	"github.com/avelat/melodex/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authorization flow and the session endpoints.
// The login and callback routes run before any session exists and carry
// the inbound rate limiter; the remaining routes demonstrate the three
// gate policies:
//
//	/auth/status   – status gate, always 200
//	/auth/validate – strict gate, 401 on any non-valid session
//	/auth/refresh  – refreshing gate, guarantees a fresh Spotify token
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, ev *auth.Evaluator, rf *auth.Refresher, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.GET("/spotify", a.Login, limiter)
	g.GET("/spotify/callback", a.Callback, limiter)
	g.GET("/status", a.Status, middleware.SessionStatus(ev))
	g.GET("/validate", a.Validate, middleware.RequireSession(ev))
	g.POST("/refresh", a.Refresh, middleware.RequireFreshToken(ev, rf))

	e.POST("/logout", a.Logout, middleware.RequireSession(ev))
}

// RegisterMusic registers the Spotify pass-through routes. All of them
// sit behind the refreshing gate so handlers never see a stale token.
// The search route additionally carries the shared response cache.
func RegisterMusic(e *echo.Echo, m *handler.MusicHandler, ev *auth.Evaluator, rf *auth.Refresher, cache echo.MiddlewareFunc) {
	api := e.Group("/api")
	api.Use(middleware.RequireFreshToken(ev, rf))

	api.GET("/search", m.Search, cache)
	api.GET("/playlists", m.Playlists)
	api.GET("/playlists/:playlistId/tracks", m.PlaylistTracks)
	api.GET("/top/:type", m.Top)
	api.GET("/recently-played", m.RecentlyPlayed)
	api.GET("/recommendations", m.Recommendations)
	api.GET("/me", m.Me)
	api.GET("/artists/:artistId/albums", m.ArtistAlbums)
	api.GET("/artists/:artistId/top-tracks", m.ArtistTopTracks)
	api.GET("/:type/:id", m.Item)
}
