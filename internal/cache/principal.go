package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/budgetly/budgetly/internal/model"
)

// principalCachePrefix is the Redis key prefix for verified principals.
// Keys are token fingerprints, never raw tokens.
const principalCachePrefix = "session:principal:"

// cachedPrincipal is the Redis representation of a principal.
type cachedPrincipal struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// GetPrincipal retrieves a cached principal by token fingerprint.
// Returns nil, nil on a miss.
func (c *Cache) GetPrincipal(ctx context.Context, fingerprint string) (*model.Principal, error) {
	data, err := c.client.Get(ctx, principalCachePrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get principal: %w", err)
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}
	id, err := uuid.Parse(cached.ID)
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.Principal{
		ID:      id,
		Email:   cached.Email,
		Name:    cached.Name,
		Surname: cached.Surname,
	}, nil
}

// SetPrincipal caches a principal for ttl.
func (c *Cache) SetPrincipal(ctx context.Context, fingerprint string, p *model.Principal, ttl time.Duration) error {
	data, err := json.Marshal(cachedPrincipal{
		ID:      p.ID.String(),
		Email:   p.Email,
		Name:    p.Name,
		Surname: p.Surname,
	})
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}
	return c.client.Set(ctx, principalCachePrefix+fingerprint, data, ttl).Err()
}

// DeletePrincipal removes a cached principal. Used on logout.
func (c *Cache) DeletePrincipal(ctx context.Context, fingerprint string) error {
	return c.client.Del(ctx, principalCachePrefix+fingerprint).Err()
}
