// Package rediscart stores carts in Redis, one JSON document per user.
package rediscart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/gigstastore/marketplace/internal/domain/cart"
)

const keyPrefix = "cart:"

// DefaultTTL is how long an untouched cart survives before Redis evicts it.
const DefaultTTL = 30 * 24 * time.Hour

var _ cart.Repository = (*Store)(nil)

// Store implements cart.Repository on top of a Redis client.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a Store. A non-positive ttl falls back to DefaultTTL.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Get loads a user's cart. A missing key yields a fresh empty cart.
func (s *Store) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &cart.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return &c, nil
}

// Save writes the cart back, refreshing its TTL.
func (s *Store) Save(ctx context.Context, c *cart.Cart) error {
	c.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.rdb.Set(ctx, keyPrefix+c.UserID, raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "store cart")
	}
	return nil
}

// RemoveItems drops the given product lines from the user's cart. Lines not
// present are ignored; an absent cart is a no-op.
func (s *Store) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if len(c.Items) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}

	kept := c.Items[:0]
	for _, it := range c.Items {
		if _, ok := drop[it.ProductID]; !ok {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(c.Items) {
		return nil
	}
	c.Items = kept

	return s.Save(ctx, c)
}

// Clear deletes the user's cart entirely.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
