package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// The Web API calls below are pure pass-throughs: they attach the bearer
// token, forward the query and hand the JSON payload back untouched.
// Callers behind the refreshing gate always hold a fresh token.

func (c *Client) get(ctx context.Context, accessToken, path string, q url.Values) (json.RawMessage, error) {
	u := c.apiURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("spotify response %s: %w", path, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify %s returned status %d", path, res.StatusCode)
	}
	return json.RawMessage(body), nil
}

// Search runs a catalog search of the given type ("track", "artist", ...).
func (c *Client) Search(ctx context.Context, accessToken, query, typ string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", typ)
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, accessToken, "/v1/search", q)
}

// Playlists lists the current user's playlists.
func (c *Client) Playlists(ctx context.Context, accessToken string, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.get(ctx, accessToken, "/v1/me/playlists", q)
}

// PlaylistTracks lists the tracks of a playlist.
func (c *Client) PlaylistTracks(ctx context.Context, accessToken, playlistID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, accessToken, "/v1/playlists/"+url.PathEscape(playlistID)+"/tracks", q)
}

// Top returns the user's top tracks or artists for a time range
// (short_term, medium_term, long_term).
func (c *Client) Top(ctx context.Context, accessToken, typ, timeRange string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("time_range", timeRange)
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, accessToken, "/v1/me/top/"+url.PathEscape(typ), q)
}

// RecentlyPlayed returns the user's recently played tracks.
func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, accessToken, "/v1/me/player/recently-played", q)
}

// Item fetches details of a single track, album or artist.
func (c *Client) Item(ctx context.Context, accessToken, typ, id string) (json.RawMessage, error) {
	return c.get(ctx, accessToken, "/v1/"+url.PathEscape(typ)+"s/"+url.PathEscape(id), nil)
}

// ArtistAlbums lists an artist's albums.
func (c *Client) ArtistAlbums(ctx context.Context, accessToken, artistID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.get(ctx, accessToken, "/v1/artists/"+url.PathEscape(artistID)+"/albums", q)
}

// ArtistTopTracks lists an artist's top tracks for a market.
func (c *Client) ArtistTopTracks(ctx context.Context, accessToken, artistID, market string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("market", market)
	return c.get(ctx, accessToken, "/v1/artists/"+url.PathEscape(artistID)+"/top-tracks", q)
}

// Recommendations forwards seed and tuning parameters verbatim.
func (c *Client) Recommendations(ctx context.Context, accessToken string, params url.Values) (json.RawMessage, error) {
	return c.get(ctx, accessToken, "/v1/recommendations", params)
}
