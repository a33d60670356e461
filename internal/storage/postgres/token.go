package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gigstastore/marketplace/internal/domain/auth"
)

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository implements auth.Repository backed by PostgreSQL.
type TokenRepository struct {
	db DB
}

// NewTokenRepository returns a TokenRepository using the given database.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindByHash looks up an active session token by its hash.
func (r *TokenRepository) FindByHash(ctx context.Context, tokenHash string) (*auth.TokenInfo, error) {
	var info auth.TokenInfo
	err := r.db.QueryRow(ctx,
		`SELECT id, token_hash, user_id, scopes FROM session_tokens
		WHERE token_hash = $1 AND (expires_at IS NULL OR expires_at > now())`,
		tokenHash).
		Scan(&info.ID, &info.TokenHash, &info.UserID, &info.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, errors.Wrap(err, "find session token")
	}
	return &info, nil
}
