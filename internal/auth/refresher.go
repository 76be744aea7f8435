package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelat/melodex/internal/model"
	"github.com/avelat/melodex/internal/spotify"
)

// ErrRefreshFailed means the refresh exchange was rejected or
// unreachable, or the result could not be persisted. The stored record
// is left untouched on the upstream failure path; callers must treat
// this as needs-login since the Spotify grant is no longer usable.
var ErrRefreshFailed = errors.New("token refresh failed")

// fallbackTokenLifetime is used when the token response omits
// expires_in. Spotify always sends it, but a missing value must not
// produce an already-expired record.
const fallbackTokenLifetime = time.Hour

// Refresher exchanges a stored refresh token for a new Spotify access
// token and persists the result. Refresh is strictly on-demand: there
// is no background loop, and a failed refresh is only retried when the
// next request observes staleness.
type Refresher struct {
	store   UserStore
	spotify *spotify.Client

	// OnRefreshed, when set, is invoked after a successful refresh with
	// the updated record and whether Spotify rotated the refresh token.
	// Used to publish the auth.token_refreshed event.
	OnRefreshed func(ctx context.Context, u *model.User, rotated bool)
}

func NewRefresher(store UserStore, client *spotify.Client) *Refresher {
	return &Refresher{store: store, spotify: client}
}

// Refresh performs one refresh cycle for the given user. Concurrent
// refreshes for the same user are tolerated: the store upsert
// serializes writes per spotify_id, so the last successful exchange
// wins and a losing exchange surfaces as ErrRefreshFailed.
func (r *Refresher) Refresh(ctx context.Context, u *model.User) (*model.User, error) {
	tok, err := r.spotify.RefreshToken(ctx, u.RefreshToken)
	if err != nil {
		log.Error().Err(err).
			Str("phase", "upstream_exchange").
			Str("spotify_id", u.SpotifyID).
			Msg("token refresh failed")
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	updated := *u
	updated.AccessToken = tok.AccessToken
	rotated := tok.RefreshToken != "" && tok.RefreshToken != u.RefreshToken
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		updated.TokenExpiresAt = tok.Expiry.UTC()
	} else {
		updated.TokenExpiresAt = time.Now().UTC().Add(fallbackTokenLifetime)
	}

	if _, err := r.store.Upsert(ctx, &updated); err != nil {
		log.Error().Err(err).
			Str("phase", "persist").
			Str("spotify_id", u.SpotifyID).
			Msg("storing refreshed token failed")
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	log.Info().
		Str("spotify_id", u.SpotifyID).
		Time("expires_at", updated.TokenExpiresAt).
		Bool("refresh_token_rotated", rotated).
		Msg("spotify access token refreshed")

	if r.OnRefreshed != nil {
		r.OnRefreshed(ctx, &updated, rotated)
	}
	return &updated, nil
}
