package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/spotify"
)

// MusicHandler exposes the Spotify Web API pass-through routes. Every
// route sits behind the refreshing gate, so the access token read from
// the request context is guaranteed usable.
type MusicHandler struct {
	Spotify *spotify.Client
}

func NewMusicHandler(sp *spotify.Client) *MusicHandler {
	return &MusicHandler{Spotify: sp}
}

// accessToken reads the fresh Spotify token attached by the gate.
func accessToken(c echo.Context) string {
	st, ok := auth.StatusFromContext(c.Request().Context())
	if !ok || st.User == nil {
		return ""
	}
	return st.User.AccessToken
}

func intQuery(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func proxyError(c echo.Context, err error, what string) error {
	log.Error().Err(err).Str("route", c.Path()).Msg("spotify proxy call failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": what})
}

// Search proxies catalog search.
func (h *MusicHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing search query parameter 'q'"})
	}
	typ := c.QueryParam("type")
	if typ == "" {
		typ = "track"
	}
	raw, err := h.Spotify.Search(c.Request().Context(), accessToken(c), query, typ, intQuery(c, "limit", 20))
	if err != nil {
		return proxyError(c, err, "Search failed")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// Playlists lists the user's playlists.
func (h *MusicHandler) Playlists(c echo.Context) error {
	raw, err := h.Spotify.Playlists(c.Request().Context(), accessToken(c),
		intQuery(c, "limit", 20), intQuery(c, "offset", 0))
	if err != nil {
		return proxyError(c, err, "Failed to get playlists")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// PlaylistTracks lists the tracks of one playlist.
func (h *MusicHandler) PlaylistTracks(c echo.Context) error {
	raw, err := h.Spotify.PlaylistTracks(c.Request().Context(), accessToken(c),
		c.Param("playlistId"), intQuery(c, "limit", 50))
	if err != nil {
		return proxyError(c, err, "Failed to get playlist tracks")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// Top returns the user's top tracks or artists.
func (h *MusicHandler) Top(c echo.Context) error {
	typ := c.Param("type")
	if typ != "tracks" && typ != "artists" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Type must be 'tracks' or 'artists'"})
	}
	timeRange := c.QueryParam("time_range")
	if timeRange == "" {
		timeRange = "medium_term"
	}
	raw, err := h.Spotify.Top(c.Request().Context(), accessToken(c), typ, timeRange, intQuery(c, "limit", 20))
	if err != nil {
		return proxyError(c, err, "Failed to get top "+typ)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// RecentlyPlayed returns the user's recently played tracks.
func (h *MusicHandler) RecentlyPlayed(c echo.Context) error {
	raw, err := h.Spotify.RecentlyPlayed(c.Request().Context(), accessToken(c), intQuery(c, "limit", 20))
	if err != nil {
		return proxyError(c, err, "Failed to get recently played tracks")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// Item fetches a single track, album or artist.
func (h *MusicHandler) Item(c echo.Context) error {
	typ := c.Param("type")
	if typ != "track" && typ != "album" && typ != "artist" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Type must be 'track', 'album', or 'artist'"})
	}
	raw, err := h.Spotify.Item(c.Request().Context(), accessToken(c), typ, c.Param("id"))
	if err != nil {
		return proxyError(c, err, "Failed to get "+typ+" details")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// ArtistAlbums lists an artist's albums.
func (h *MusicHandler) ArtistAlbums(c echo.Context) error {
	raw, err := h.Spotify.ArtistAlbums(c.Request().Context(), accessToken(c),
		c.Param("artistId"), intQuery(c, "limit", 20))
	if err != nil {
		return proxyError(c, err, "Failed to get artist albums")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// ArtistTopTracks lists an artist's top tracks for a market.
func (h *MusicHandler) ArtistTopTracks(c echo.Context) error {
	market := c.QueryParam("market")
	if market == "" {
		market = "US"
	}
	raw, err := h.Spotify.ArtistTopTracks(c.Request().Context(), accessToken(c), c.Param("artistId"), market)
	if err != nil {
		return proxyError(c, err, "Failed to get artist top tracks")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// Recommendations forwards seed and tuning parameters verbatim.
func (h *MusicHandler) Recommendations(c echo.Context) error {
	params := c.QueryParams()
	if params.Get("seed_artists") == "" && params.Get("seed_tracks") == "" && params.Get("seed_genres") == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "At least one seed parameter is required (seed_artists, seed_tracks, or seed_genres)",
		})
	}
	raw, err := h.Spotify.Recommendations(c.Request().Context(), accessToken(c), params)
	if err != nil {
		return proxyError(c, err, "Failed to get recommendations")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// Me returns a fresh profile from Spotify rather than the stored copy.
func (h *MusicHandler) Me(c echo.Context) error {
	profile, err := h.Spotify.Profile(c.Request().Context(), accessToken(c))
	if err != nil {
		return proxyError(c, err, "Failed to get profile")
	}
	return c.JSON(http.StatusOK, profile)
}
