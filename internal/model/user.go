package model

import "time"

// User represents an application user record as stored in the `users`
// table. There is exactly one row per Spotify account, keyed by the
// unique SpotifyID. The Spotify access/refresh token pair lives on the
// record itself: this service keeps only the current pair, no history.
//
// TokenExpiresAt always describes the stored AccessToken. The two are
// written together on every upsert and never independently.
//
// Fields:
//  ID             – primary key identifier of the user.
//  SpotifyID      – unique Spotify user id, immutable once created.
//  DisplayName    – profile display name, refreshed on every login.
//  Email          – profile email, refreshed on every login.
//  AccessToken    – current Spotify bearer token.
//  RefreshToken   – long-lived Spotify refresh credential.
//  TokenExpiresAt – absolute expiry instant of AccessToken.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64    // users.id
	SpotifyID      string    // users.spotify_id
	DisplayName    string    // users.display_name
	Email          string    // users.email
	AccessToken    string    // users.access_token
	RefreshToken   string    // users.refresh_token
	TokenExpiresAt time.Time // users.token_expires_at
	CreatedAt      time.Time // users.created_at
	UpdatedAt      time.Time // users.updated_at
}

// TokenFresh reports whether the stored Spotify access token is still
// usable at the given instant.
func (u *User) TokenFresh(now time.Time) bool {
	return now.Before(u.TokenExpiresAt)
}
