// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for auth lifecycle events.
const (
	LoginQueue          = "auth.login"
	TokenRefreshedQueue = "auth.token_refreshed"
)

// UserLoggedInEvent is published after a successful authorization-code
// exchange. Downstream consumers can log, notify or feed analytics
// without querying the primary database. Tokens are never included.
type UserLoggedInEvent struct {
	SpotifyID   string `json:"spotify_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	LoggedInAt  string `json:"logged_in_at"`
}

// TokenRefreshedEvent is published after a stored Spotify access token
// was refreshed on demand.
type TokenRefreshedEvent struct {
	SpotifyID   string `json:"spotify_id"`
	ExpiresAt   string `json:"expires_at"`
	Rotated     bool   `json:"refresh_token_rotated"`
	RefreshedAt string `json:"refreshed_at"`
}
