package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gigstastore/marketplace/internal/domain/seller"
	"github.com/gigstastore/marketplace/internal/domain/user"
)

// Buyers and sellers share the users table; a user may hold both roles.
// SellerRepository and UserRepository expose the two views.

var (
	_ seller.Repository = (*SellerRepository)(nil)
	_ user.Repository   = (*UserRepository)(nil)
)

// SellerRepository implements seller.Repository backed by PostgreSQL.
type SellerRepository struct {
	db DB
}

// NewSellerRepository returns a SellerRepository using the given database.
func NewSellerRepository(db DB) *SellerRepository {
	return &SellerRepository{db: db}
}

const sellerColumns = `id, COALESCE(NULLIF(trading_name, ''), full_name), email,
	COALESCE(connect_account_id, ''), payout_status`

func scanSeller(row pgx.Row) (*seller.Seller, error) {
	var s seller.Seller
	err := row.Scan(&s.ID, &s.DisplayName, &s.Email, &s.ConnectAccountID, &s.PayoutStatus)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a seller by user id.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (*seller.Seller, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sellerColumns+` FROM users WHERE id = $1`, id)
	s, err := scanSeller(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, seller.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get seller %q", id)
	}
	return s, nil
}

// GetByIDs returns every seller whose id is in ids, in one query.
func (r *SellerRepository) GetByIDs(ctx context.Context, ids []string) ([]seller.Seller, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+sellerColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query sellers")
	}
	defer rows.Close()

	var sellers []seller.Seller
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan seller")
		}
		sellers = append(sellers, *s)
	}
	return sellers, rows.Err()
}

// GetByConnectAccount resolves a seller from a connected account id.
func (r *SellerRepository) GetByConnectAccount(ctx context.Context, accountID string) (*seller.Seller, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sellerColumns+` FROM users WHERE connect_account_id = $1`, accountID)
	s, err := scanSeller(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, seller.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get seller by connect account %q", accountID)
	}
	return s, nil
}

// UpdatePayoutStatus writes a new payout status.
func (r *SellerRepository) UpdatePayoutStatus(ctx context.Context, id string, status seller.PayoutStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET payout_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return errors.Wrapf(err, "update payout status for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return seller.ErrNotFound
	}
	return nil
}

// ResetBilling clears the connected account and reverts payout status.
func (r *SellerRepository) ResetBilling(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET connect_account_id = NULL, payout_status = 'not_applied',
			updated_at = now() WHERE id = $1`,
		id)
	if err != nil {
		return errors.Wrapf(err, "reset billing for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return seller.ErrNotFound
	}
	return nil
}

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository returns a UserRepository using the given database.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user's profile data.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, full_name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	return &u, nil
}
