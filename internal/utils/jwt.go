package utils // package utils provides helpers for session token creation and verification

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the fixed lifetime of a session token. Session tokens
// are never reissued or extended; once one lapses the client has to run
// the full Spotify authorization flow again.
const SessionTTL = 7 * 24 * time.Hour

// ErrSessionExpired means the token's signature verified but its
// lifetime has lapsed. Callers treat this differently from
// ErrSessionInvalid because the response contract exposes the
// distinction to clients.
var ErrSessionExpired = errors.New("session token expired")

// ErrSessionInvalid covers every other verification failure: malformed
// payload, wrong signing method, bad signature.
var ErrSessionInvalid = errors.New("session token invalid")

// SessionClaims binds a local user id to a Spotify identity. Structural
// validity (signature, expiry) is checkable without a database lookup;
// authorization additionally requires the referenced user row to exist.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID    uint64 `json:"userId"`
	SpotifyID string `json:"spotifyId"`
}

// SessionToken carries a signed token string along with its expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// IssueSession builds and signs an HS256 session token for a user. The
// expiry is always SessionTTL from now; there is no configurable
// lifetime on purpose.
func IssueSession(secret string, userID uint64, spotifyID string) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(SessionTTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:    userID,
		SpotifyID: spotifyID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// VerifySession checks signature integrity first, then expiry, and
// returns the embedded claims. The error is always one of
// ErrSessionExpired or ErrSessionInvalid so callers can branch with
// errors.Is instead of inspecting library internals.
func VerifySession(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		// The signature is verified before claim validation, so an
		// expired error here implies an authentic token.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}
	if !tok.Valid {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

// RandomState returns a hex-encoded string generated from n bytes of
// cryptographically secure random data, used for the OAuth state
// parameter.
func RandomState(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
