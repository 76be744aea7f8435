// Package spotify wraps the two Spotify surfaces this service talks to:
// the accounts endpoints (authorization code exchange, token refresh)
// via golang.org/x/oauth2, and the Web API proxied for the frontend.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultAccountsURL is the Spotify authorization server.
	DefaultAccountsURL = "https://accounts.spotify.com"
	// DefaultAPIURL is the Spotify Web API.
	DefaultAPIURL = "https://api.spotify.com"
)

// Scopes requested during authorization. Read-only profile and library
// access only; this service never asks for write scopes.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// Client talks to Spotify. Both base URLs are configurable so tests can
// point the client at a local fake.
type Client struct {
	conf   *oauth2.Config
	apiURL string
	httpc  *http.Client
}

func New(clientID, clientSecret, redirectURL, accountsURL, apiURL string) *Client {
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  accountsURL + "/authorize",
			TokenURL: accountsURL + "/api/token",
			// Spotify accepts client credentials in the form body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return &Client{
		conf:   conf,
		apiURL: apiURL,
		httpc:  &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL builds the authorization URL the browser is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.conf.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("spotify code exchange: %w", err)
	}
	return tok, nil
}

// RefreshToken exchanges a stored refresh token for a new access token.
// When Spotify does not rotate the refresh token, the returned token
// carries the old one unchanged.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := c.conf.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify token refresh: %w", err)
	}
	return tok, nil
}

// Profile is the subset of the Spotify /v1/me response the service
// stores or forwards.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images,omitempty"`
	Followers   struct {
		Total int `json:"total"`
	} `json:"followers,omitempty"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	raw, err := c.get(ctx, accessToken, "/v1/me", nil)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("spotify profile decode: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("spotify profile missing id")
	}
	return &p, nil
}

// withHTTPClient makes the oauth2 machinery use our bounded client for
// token endpoint calls.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
}
