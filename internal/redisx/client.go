// Package redisx wraps the Redis uses of the service. A nil *Store is valid and behaves as
// an empty cache that remembers nothing, so Redis stays optional.
package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store {
	if rdb == nil {
		return nil
	}
	return &Store{rdb: rdb}
}

func (s *Store) Enabled() bool { return s != nil }

func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

const pendingOrder = "pending"

// ClaimOrder reserves an idempotency key before the order is written. claimed is true when this
// caller owns the key and must follow up with RememberOrder or ReleaseOrder. A key that already
// holds an order id returns that id; a key another request is still working on returns
// apperr.ErrConflict. Without Redis every call is claimed.
func (s *Store) ClaimOrder(ctx context.Context, idemKey string) (orderID int64, claimed bool, err error) {
	if s == nil {
		return 0, true, nil
	}
	key := fmt.Sprintf(KeyIdemOrderSubmit, idemKey)
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, key, pendingOrder, TTLIdemPending).Result()
		if err != nil {
			return 0, false, fmt.Errorf("redis claim %s: %w", key, err)
		}
		if ok {
			return 0, true, nil
		}

		v, found, err := s.get(ctx, key)
		if err != nil {
			return 0, false, err
		}
		if !found {
			continue // expired between SETNX and GET
		}
		if v == pendingOrder {
			return 0, false, apperr.Conflict("an order with this Idempotency-Key is still being processed")
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("idempotency value %q: %w", v, err)
		}
		return id, false, nil
	}
	return 0, false, apperr.Conflict("an order with this Idempotency-Key is still being processed")
}

// RememberOrder replaces the claim with the committed order id.
func (s *Store) RememberOrder(ctx context.Context, idemKey string, orderID int64) error {
	if s == nil {
		return nil
	}
	key := fmt.Sprintf(KeyIdemOrderSubmit, idemKey)
	return s.rdb.Set(ctx, key, strconv.FormatInt(orderID, 10), TTLIdempotency).Err()
}

// ReleaseOrder drops a claim whose submission failed so the client can retry with the same key.
func (s *Store) ReleaseOrder(ctx context.Context, idemKey string) error {
	if s == nil {
		return nil
	}
	return s.rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderSubmit, idemKey)).Err()
}

// CatalogVersion is bumped by InvalidateCatalog. Read it before loading the catalog from the
// database and pass it to CacheCatalog, so a body loaded before an invalidation is stored under
// a version nobody reads any more.
func (s *Store) CatalogVersion(ctx context.Context) (int64, error) {
	v, ok, err := s.get(ctx, KeyCatalogVersion)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog version %q: %w", v, err)
	}
	return n, nil
}

func (s *Store) CachedCatalog(ctx context.Context, version int64) ([]byte, bool, error) {
	v, ok, err := s.get(ctx, fmt.Sprintf(KeyCatalogCurrent, version))
	return []byte(v), ok, err
}

func (s *Store) CacheCatalog(ctx context.Context, version int64, body []byte) error {
	if s == nil {
		return nil
	}
	return s.rdb.Set(ctx, fmt.Sprintf(KeyCatalogCurrent, version), body, TTLCatalog).Err()
}

// InvalidateCatalog moves readers to a new version. Old entries expire on their own.
func (s *Store) InvalidateCatalog(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.rdb.Incr(ctx, KeyCatalogVersion).Err()
}

// FirstSeen marks an event id as processed by service and reports whether this call was the
// first to do so. Without Redis every event counts as first seen.
func (s *Store) FirstSeen(ctx context.Context, service, eventID string) (bool, error) {
	if s == nil {
		return true, nil
	}
	ok, err := s.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedup: %w", err)
	}
	return ok, nil
}

// Forget undoes FirstSeen so a failed event can be retried.
func (s *Store) Forget(ctx context.Context, service, eventID string) error {
	if s == nil {
		return nil
	}
	return s.rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err()
}

func (s *Store) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	return s.rdb.Set(ctx, fmt.Sprintf(KeySessionRevoked, id), "1", ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, id string) (bool, error) {
	if s == nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, fmt.Sprintf(KeySessionRevoked, id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revoked: %w", err)
	}
	return n > 0, nil
}
