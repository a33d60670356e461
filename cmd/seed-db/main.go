// Command seed-db loads development fixtures: a buyer, two onboarded
// sellers, an admin, a small product catalog, and session tokens for each
// account.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/storage/postgres"
)

type userSeed struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	FullName         string   `json:"full_name"`
	TradingName      string   `json:"trading_name"`
	ConnectAccountID string   `json:"connect_account_id"`
	PayoutStatus     string   `json:"payout_status"`
	Token            string   `json:"token"`
	Scopes           []string `json:"scopes"`
}

type productSeed struct {
	ID               string          `json:"id"`
	SellerID         string          `json:"seller_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Category         string          `json:"category"`
	Status           string          `json:"status"`
	IsRecurring      bool            `json:"is_recurring"`
	BillingProductID string          `json:"billing_product_id"`
	BillingPriceID   string          `json:"billing_price_id"`
}

type seedFile struct {
	Users    []userSeed    `json:"users"`
	Products []productSeed `json:"products"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
		tokenPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/fixtures.json", "path to seed fixtures JSON file")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for session token hashing (or MARKET_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("MARKET_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, tokenPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	if err := seedUsers(ctx, pool, seed.Users, pepper); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func seedUsers(ctx context.Context, db postgres.DB, users []userSeed, pepper string) error {
	slog.Info("upserting users", slog.Int("count", len(users)))

	for _, u := range users {
		var connectAccount any
		if u.ConnectAccountID != "" {
			connectAccount = u.ConnectAccountID
		}
		payoutStatus := u.PayoutStatus
		if payoutStatus == "" {
			payoutStatus = "not_applied"
		}

		if _, err := db.Exec(ctx,
			`INSERT INTO users (id, email, full_name, trading_name, connect_account_id, payout_status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				full_name = EXCLUDED.full_name,
				trading_name = EXCLUDED.trading_name,
				connect_account_id = EXCLUDED.connect_account_id,
				payout_status = EXCLUDED.payout_status,
				updated_at = now()`,
			u.ID, u.Email, u.FullName, u.TradingName, connectAccount, payoutStatus,
		); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}

		if u.Token != "" {
			mac := hmac.New(sha256.New, []byte(pepper))
			mac.Write([]byte(u.Token))
			tokenHash := hex.EncodeToString(mac.Sum(nil))

			scopes := u.Scopes
			if scopes == nil {
				scopes = []string{}
			}
			if _, err := db.Exec(ctx,
				`INSERT INTO session_tokens (id, token_hash, user_id, scopes)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (token_hash) DO UPDATE SET
					user_id = EXCLUDED.user_id,
					scopes = EXCLUDED.scopes`,
				"seed-"+u.ID, tokenHash, u.ID, scopes,
			); err != nil {
				return errors.Wrapf(err, "upsert token for %s", u.ID)
			}
		}

		slog.Info("upserted user", slog.String("id", u.ID), slog.String("email", u.Email))
	}

	return nil
}

func seedProducts(ctx context.Context, db postgres.DB, products []productSeed) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		status := p.Status
		if status == "" {
			status = "published"
		}
		var billingProduct, billingPrice any
		if p.BillingProductID != "" {
			billingProduct = p.BillingProductID
		}
		if p.BillingPriceID != "" {
			billingPrice = p.BillingPriceID
		}

		if _, err := db.Exec(ctx,
			`INSERT INTO products (id, seller_id, title, description, price, category,
				status, is_recurring, billing_product_id, billing_price_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				price = EXCLUDED.price,
				category = EXCLUDED.category,
				status = EXCLUDED.status,
				is_recurring = EXCLUDED.is_recurring,
				billing_product_id = EXCLUDED.billing_product_id,
				billing_price_id = EXCLUDED.billing_price_id,
				updated_at = now()`,
			p.ID, p.SellerID, p.Title, p.Description, p.Price, p.Category,
			status, p.IsRecurring, billingProduct, billingPrice,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}

	return nil
}
