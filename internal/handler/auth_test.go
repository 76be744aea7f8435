package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/config"
	"github.com/avelat/melodex/internal/repository"
	"github.com/avelat/melodex/internal/spotify"
)

const handlerSecret = "handler-test-secret"

// fakeSpotify serves both the accounts token endpoint and the profile
// endpoint from a single test server.
func fakeSpotify(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"spotify-access","token_type":"Bearer","expires_in":3600,"refresh_token":"spotify-refresh"}`))
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer spotify-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"spotify-user","display_name":"Spotify User","email":"user@example.com","country":"DE","product":"premium"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthFixture(t *testing.T) (*AuthHandler, *repository.MemoryUserStore) {
	t.Helper()

	srv := fakeSpotify(t)
	cfg := config.Config{
		JWTSecret:   handlerSecret,
		FrontendURL: "http://127.0.0.1:3001",
	}
	store := repository.NewMemoryUserStore()
	states := repository.NewStateStore(nil, 10*time.Minute)
	sp := spotify.New("id", "secret", "http://127.0.0.1/cb", srv.URL, srv.URL)
	return NewAuthHandler(cfg, store, states, sp), store
}

func doGET(h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func TestLogin_RedirectsToSpotify(t *testing.T) {
	t.Parallel()

	h, _ := newAuthFixture(t)
	rec := doGET(h.Login, "/auth/spotify")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	assert.Equal(t, "/authorize", loc.Path)
	q := loc.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "id", q.Get("client_id"))
	assert.NotEmpty(t, q.Get("state"))
	assert.Contains(t, q.Get("scope"), "user-read-private")
}

func TestCallback_CompletesLogin(t *testing.T) {
	t.Parallel()

	h, store := newAuthFixture(t)
	rec := doGET(h.Callback, "/auth/spotify/callback?code=good-code&state=whatever")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	token := loc.Query().Get("token")
	require.NotEmpty(t, token)

	// The user record must carry the token pair from the exchange.
	u, err := store.GetBySpotifyID(context.Background(), "spotify-user")
	require.NoError(t, err)
	assert.Equal(t, "Spotify User", u.DisplayName)
	assert.Equal(t, "user@example.com", u.Email)
	assert.Equal(t, "spotify-access", u.AccessToken)
	assert.Equal(t, "spotify-refresh", u.RefreshToken)
	assert.True(t, u.TokenFresh(time.Now().UTC()))

	// The issued session must evaluate as fully valid.
	st := auth.NewEvaluator(store, handlerSecret).Evaluate(context.Background(), token)
	assert.True(t, st.Valid)
	assert.False(t, st.TokenExpired)
	assert.Equal(t, u.ID, st.UserID)
}

func TestCallback_RepeatLoginKeepsIdentity(t *testing.T) {
	t.Parallel()

	h, store := newAuthFixture(t)

	rec := doGET(h.Callback, "/auth/spotify/callback?code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)
	first, err := store.GetBySpotifyID(context.Background(), "spotify-user")
	require.NoError(t, err)

	rec = doGET(h.Callback, "/auth/spotify/callback?code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)
	second, err := store.GetBySpotifyID(context.Background(), "spotify-user")
	require.NoError(t, err)

	// Same Spotify identity maps to the same local row.
	assert.Equal(t, first.ID, second.ID)
}

func TestCallback_Denied(t *testing.T) {
	t.Parallel()

	h, _ := newAuthFixture(t)
	rec := doGET(h.Callback, "/auth/spotify/callback?error=access_denied")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authorization denied", body["error"])
}

func TestCallback_MissingCode(t *testing.T) {
	t.Parallel()

	h, _ := newAuthFixture(t)
	rec := doGET(h.Callback, "/auth/spotify/callback")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	t.Parallel()

	h, _ := newAuthFixture(t)
	rec := doGET(h.Callback, "/auth/spotify/callback?code=bad-code")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authentication failed", body["error"])
}

func TestStatus_Anonymous(t *testing.T) {
	t.Parallel()

	h, _ := newAuthFixture(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req = req.WithContext(auth.WithStatus(req.Context(), auth.Status{
		NeedsLogin: true,
		Reason:     auth.ReasonNoToken,
	}))
	rec := httptest.NewRecorder()
	require.NoError(t, h.Status(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, true, body["needsLogin"])
	assert.Equal(t, "no token", body["reason"])
	// tokenExpired is only reported for authenticated sessions.
	assert.NotContains(t, body, "tokenExpired")
}

func TestStatus_Authenticated(t *testing.T) {
	t.Parallel()

	h, store := newAuthFixture(t)
	doGET(h.Callback, "/auth/spotify/callback?code=good-code")

	u, err := store.GetBySpotifyID(context.Background(), "spotify-user")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req = req.WithContext(auth.WithStatus(req.Context(), auth.Status{
		Valid:  true,
		UserID: u.ID,
		User:   u,
	}))
	rec := httptest.NewRecorder()
	require.NoError(t, h.Status(e.NewContext(req, rec)))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, false, body["tokenExpired"])
}

func TestValidate_ReportsUser(t *testing.T) {
	t.Parallel()

	h, store := newAuthFixture(t)
	doGET(h.Callback, "/auth/spotify/callback?code=good-code")

	u, err := store.GetBySpotifyID(context.Background(), "spotify-user")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/validate", nil)
	req = req.WithContext(auth.WithStatus(req.Context(), auth.Status{
		Valid:  true,
		UserID: u.ID,
		User:   u,
	}))
	rec := httptest.NewRecorder()
	require.NoError(t, h.Validate(e.NewContext(req, rec)))

	var body validateResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Valid)
	assert.Equal(t, "spotify-user", body.User.ID)
	assert.Equal(t, "Spotify User", body.User.DisplayName)
}
