package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelat/melodex/internal/auth"
	"github.com/avelat/melodex/internal/model"
	"github.com/avelat/melodex/internal/repository"
	"github.com/avelat/melodex/internal/spotify"
	"github.com/avelat/melodex/internal/utils"
)

const gateSecret = "gate-test-secret"

type gateFixture struct {
	store *repository.MemoryUserStore
	ev    *auth.Evaluator
	rf    *auth.Refresher
}

// newGateFixture wires an evaluator and refresher against an in-memory
// store and a fake token endpoint answering with tokenStatus/tokenBody.
func newGateFixture(t *testing.T, tokenStatus int, tokenBody string) *gateFixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		_, _ = w.Write([]byte(tokenBody))
	}))
	t.Cleanup(srv.Close)

	store := repository.NewMemoryUserStore()
	client := spotify.New("id", "secret", "http://127.0.0.1/cb", srv.URL, srv.URL)
	return &gateFixture{
		store: store,
		ev:    auth.NewEvaluator(store, gateSecret),
		rf:    auth.NewRefresher(store, client),
	}
}

func (f *gateFixture) seed(t *testing.T, spotifyID string, expiresAt time.Time) string {
	t.Helper()

	id, err := f.store.Upsert(context.Background(), &model.User{
		SpotifyID:      spotifyID,
		AccessToken:    "access-" + spotifyID,
		RefreshToken:   "refresh-" + spotifyID,
		TokenExpiresAt: expiresAt,
	})
	require.NoError(t, err)

	tok, err := utils.IssueSession(gateSecret, id, spotifyID)
	require.NoError(t, err)
	return tok.Token
}

// invoke runs one request through the middleware chain; the terminal
// handler records the status it observed in context.
func invoke(mw echo.MiddlewareFunc, bearer string) (*httptest.ResponseRecorder, *auth.Status) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *auth.Status
	h := mw(func(c echo.Context) error {
		if st, ok := auth.StatusFromContext(c.Request().Context()); ok {
			seen = &st
		}
		return c.NoContent(http.StatusOK)
	})
	_ = h(c)
	return rec, seen
}

func decodeRejection(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireSession_NoToken(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK, `{}`)
	rec, seen := invoke(RequireSession(f.ev), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	body := decodeRejection(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, true, body["needsLogin"])
	assert.Equal(t, "no token", body["error"])
	assert.NotContains(t, body, "jwtExpired")
}

func TestRequireSession_ExpiredSession(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK, `{}`)

	now := time.Now().UTC()
	claims := utils.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
		UserID:    1,
		SpotifyID: "lapsed",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(gateSecret))
	require.NoError(t, err)

	rec, _ := invoke(RequireSession(f.ev), raw)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeRejection(t, rec)
	assert.Equal(t, false, body["needsLogin"])
	assert.Equal(t, true, body["jwtExpired"])
	assert.Equal(t, "token expired", body["error"])
}

func TestRequireSession_Valid(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK, `{}`)
	raw := f.seed(t, "alice", time.Now().UTC().Add(time.Hour))

	rec, seen := invoke(RequireSession(f.ev), raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.True(t, seen.Valid)
	assert.Equal(t, "alice", seen.User.SpotifyID)
}

func TestSessionStatus_AlwaysContinues(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK, `{}`)
	rec, seen := invoke(SessionStatus(f.ev), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.False(t, seen.Valid)
	assert.True(t, seen.NeedsLogin)
	assert.Equal(t, auth.ReasonNoToken, seen.Reason)
}

func TestSessionStatus_StaleTokenStillContinues(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK, `{}`)
	raw := f.seed(t, "bob", time.Now().UTC().Add(-time.Minute))

	rec, seen := invoke(SessionStatus(f.ev), raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.True(t, seen.Valid)
	assert.True(t, seen.TokenExpired)
}

func TestRequireFreshToken_FreshSkipsRefresh(t *testing.T) {
	t.Parallel()

	// Token endpoint answers with an error so any refresh attempt
	// would fail the request.
	f := newGateFixture(t, http.StatusInternalServerError, `{}`)
	raw := f.seed(t, "carol", time.Now().UTC().Add(time.Hour))

	rec, seen := invoke(RequireFreshToken(f.ev, f.rf), raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "access-carol", seen.User.AccessToken)
}

func TestRequireFreshToken_RefreshesStaleToken(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusOK,
		`{"access_token":"refreshed-access","token_type":"Bearer","expires_in":3600}`)
	raw := f.seed(t, "dave", time.Now().UTC().Add(-time.Minute))

	rec, seen := invoke(RequireFreshToken(f.ev, f.rf), raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.False(t, seen.TokenExpired)
	assert.Equal(t, "refreshed-access", seen.User.AccessToken)

	stored, err := f.store.GetBySpotifyID(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", stored.AccessToken)
}

func TestRequireFreshToken_RefreshFailure(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	raw := f.seed(t, "erin", time.Now().UTC().Add(-time.Minute))

	rec, seen := invoke(RequireFreshToken(f.ev, f.rf), raw)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	body := decodeRejection(t, rec)
	assert.Equal(t, true, body["needsLogin"])
	assert.Equal(t, refreshFailedMessage, body["error"])
}
