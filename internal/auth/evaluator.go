package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelat/melodex/internal/model"
	"github.com/avelat/melodex/internal/repository"
	"github.com/avelat/melodex/internal/utils"
)

// UserStore is the credential-store surface the authorization core
// depends on. Both the MySQL repository and the in-memory store
// implement it.
type UserStore interface {
	Upsert(ctx context.Context, u *model.User) (uint64, error)
	GetBySpotifyID(ctx context.Context, spotifyID string) (*model.User, error)
}

// Evaluator classifies an inbound session token: structural validity,
// existence of the bound user record, and freshness of the stored
// Spotify access token.
type Evaluator struct {
	store  UserStore
	secret string
}

func NewEvaluator(store UserStore, secret string) *Evaluator {
	return &Evaluator{store: store, secret: secret}
}

// Evaluate runs the per-request authorization state machine. It never
// returns an error: every outcome, including internal store failures,
// is expressed as a Status so gates produce a uniform contract.
func (e *Evaluator) Evaluate(ctx context.Context, rawToken string) Status {
	if rawToken == "" {
		return Status{NeedsLogin: true, Reason: ReasonNoToken}
	}

	claims, err := utils.VerifySession(e.secret, rawToken)
	if err != nil {
		if errors.Is(err, utils.ErrSessionExpired) {
			// Authentic but lapsed. Deliberately not NeedsLogin: the
			// response contract exposes jwtExpired as its own class.
			return Status{JWTExpired: true, Reason: ReasonTokenExpired}
		}
		return Status{NeedsLogin: true, Reason: ReasonInvalidToken}
	}

	user, err := e.store.GetBySpotifyID(ctx, claims.SpotifyID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Status{NeedsLogin: true, Reason: ReasonUserNotFound}
		}
		log.Error().Err(err).
			Str("phase", "user_lookup").
			Str("spotify_id", claims.SpotifyID).
			Msg("credential store read failed")
		return Status{NeedsLogin: true, Reason: ReasonLookupFailed}
	}

	return Status{
		Valid:        true,
		TokenExpired: !user.TokenFresh(time.Now().UTC()),
		UserID:       claims.UserID,
		User:         user,
	}
}
