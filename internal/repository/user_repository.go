package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avelat/melodex/internal/model"
)

// UserRepo persists Spotify-linked user records in MySQL. Every write is
// an upsert keyed on spotify_id; the last writer wins. Access token and
// its expiry are always written in the same statement.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Upsert inserts or overwrites the record for u.SpotifyID and returns
// the row id. Profile fields and the token pair are replaced wholesale.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) (uint64, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (spotify_id, display_name, email, access_token, refresh_token, token_expires_at)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   display_name=VALUES(display_name),
		   email=VALUES(email),
		   access_token=VALUES(access_token),
		   refresh_token=VALUES(refresh_token),
		   token_expires_at=VALUES(token_expires_at)`,
		u.SpotifyID, u.DisplayName, u.Email, u.AccessToken, u.RefreshToken,
		u.TokenExpiresAt.UTC())
	if err != nil {
		return 0, err
	}
	// LastInsertId is unreliable for the duplicate-key path, so read the
	// id back by the unique key.
	var id uint64
	err = r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE spotify_id=? LIMIT 1", u.SpotifyID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetBySpotifyID fetches a user by its unique Spotify id.
func (r *UserRepo) GetBySpotifyID(ctx context.Context, spotifyID string) (*model.User, error) {
	var (
		u         model.User
		expiresAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, spotify_id, display_name, email, access_token, refresh_token,
		        token_expires_at, created_at, updated_at
		 FROM users WHERE spotify_id=? LIMIT 1`,
		spotifyID).Scan(&u.ID, &u.SpotifyID, &u.DisplayName, &u.Email,
		&u.AccessToken, &u.RefreshToken, &expiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if expiresAt.Valid {
		u.TokenExpiresAt = expiresAt.Time.UTC()
	}
	return &u, nil
}

// Delete removes a user record. Used by operational tooling and tests;
// a live session whose record is deleted degrades to "user not found".
func (r *UserRepo) Delete(ctx context.Context, spotifyID string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE spotify_id=?", spotifyID)
	return err
}
