package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/config"
	"github.com/avelat/melodex/internal/model"
	"github.com/avelat/melodex/internal/queue"
	"github.com/avelat/melodex/internal/repository"
	queue_publisher "github.com/avelat/melodex/internal/service"
	"github.com/avelat/melodex/internal/spotify"
	"github.com/avelat/melodex/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   auth.UserStore
	States  *repository.StateStore
	Spotify *spotify.Client
}

func NewAuthHandler(cfg config.Config, users auth.UserStore, states *repository.StateStore, sp *spotify.Client) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, States: states, Spotify: sp}
}

// ----- DTOs -----

type statusResp struct {
	Authenticated bool   `json:"authenticated"`
	NeedsLogin    bool   `json:"needsLogin"`
	TokenExpired  *bool  `json:"tokenExpired,omitempty"`
	JWTExpired    bool   `json:"jwtExpired,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type userPart struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type validateResp struct {
	Valid        bool     `json:"valid"`
	NeedsLogin   bool     `json:"needsLogin"`
	User         userPart `json:"user"`
	TokenExpired bool     `json:"tokenExpired"`
}

// Login: mint a single-use state and send the browser to Spotify.
func (h *AuthHandler) Login(c echo.Context) error {
	state, err := utils.RandomState(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.States.Save(ctx, state); err != nil {
		log.Error().Err(err).Str("phase", "state_save").Msg("login redirect failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}
	return c.Redirect(http.StatusFound, h.Spotify.AuthCodeURL(state))
}

// Callback: complete the authorization-code flow. Exchanges the code,
// fetches the profile, upserts the user record (including the fresh
// token pair) and hands a session token back to the frontend.
func (h *AuthHandler) Callback(c echo.Context) error {
	if denied := c.QueryParam("error"); denied != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "authorization denied"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing authorization code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ok, err := h.States.Consume(ctx, c.QueryParam("state"))
	if err != nil {
		// Redis hiccup: log and proceed rather than failing every login.
		log.Warn().Err(err).Str("phase", "state_check").Msg("state verification unavailable")
	} else if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid state"})
	}

	tok, err := h.Spotify.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("phase", "code_exchange").Msg("oauth callback failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	profile, err := h.Spotify.Profile(ctx, tok.AccessToken)
	if err != nil {
		log.Error().Err(err).Str("phase", "profile_fetch").Msg("oauth callback failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	expiresAt := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expiresAt = time.Now().UTC().Add(time.Hour)
	}
	user := &model.User{
		SpotifyID:      profile.ID,
		DisplayName:    profile.DisplayName,
		Email:          profile.Email,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: expiresAt,
	}
	id, err := h.Users.Upsert(ctx, user)
	if err != nil {
		log.Error().Err(err).Str("phase", "persist").Msg("oauth callback failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	sess, err := utils.IssueSession(h.Cfg.JWTSecret, id, profile.ID)
	if err != nil {
		log.Error().Err(err).Str("phase", "session_issue").Msg("oauth callback failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	_ = queue_publisher.PublishUserLoggedIn(ctx, queue.UserLoggedInEvent{
		SpotifyID:   profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		LoggedInAt:  time.Now().UTC().Format(time.RFC3339),
	})

	log.Info().Str("spotify_id", profile.ID).Msg("user logged in")
	return c.Redirect(http.StatusFound, h.Cfg.FrontendURL+"?token="+url.QueryEscape(sess.Token))
}

// Status answers "am I logged in" without ever blocking: the status
// gate always lets the request through and this handler reports
// whatever it computed.
func (h *AuthHandler) Status(c echo.Context) error {
	st, _ := auth.StatusFromContext(c.Request().Context())
	resp := statusResp{
		Authenticated: st.Valid,
		NeedsLogin:    st.NeedsLogin,
		JWTExpired:    st.JWTExpired,
		Reason:        st.Reason,
	}
	if st.Valid {
		te := st.TokenExpired
		resp.TokenExpired = &te
	}
	return c.JSON(http.StatusOK, resp)
}

// Validate runs behind the strict gate, so reaching the handler means
// the session is valid and the user record exists.
func (h *AuthHandler) Validate(c echo.Context) error {
	st, _ := auth.StatusFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, validateResp{
		Valid:      true,
		NeedsLogin: false,
		User: userPart{
			ID:          st.User.SpotifyID,
			DisplayName: st.User.DisplayName,
			Email:       st.User.Email,
		},
		TokenExpired: st.TokenExpired,
	})
}

// Refresh runs behind the refreshing gate; if the handler executes, the
// stored Spotify token was either already fresh or just refreshed.
func (h *AuthHandler) Refresh(c echo.Context) error {
	st, _ := auth.StatusFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Token refreshed successfully",
		"tokenExpired": st.TokenExpired,
	})
}

// Logout acknowledges the client discarding its session token. Session
// tokens are not tracked server-side, so there is nothing to revoke.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}
