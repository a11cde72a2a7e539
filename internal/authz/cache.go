package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const grantCachePrefix = "authz:grants:"

type cachedGrant struct {
	ID               string  `json:"id"`
	Role             string  `json:"role"`
	Key              string  `json:"key"`
	DepartmentScoped bool    `json:"department_scoped"`
	DepartmentID     *string `json:"department_id,omitempty"`
}

// CachedGrantLookup keeps per-role grant lists in redis. Redis failures fall
// through to the wrapped lookup.
type CachedGrantLookup struct {
	next   GrantLookup
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGrantLookup decorates next with a redis cache.
func NewCachedGrantLookup(next GrantLookup, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGrantLookup {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGrantLookup{next: next, client: client, ttl: ttl, logger: logger}
}

// GrantsForRole serves grants from redis, loading and caching them on a miss.
func (c *CachedGrantLookup) GrantsForRole(ctx context.Context, role domain.Role) ([]domain.PermissionGrant, error) {
	key := grantCachePrefix + string(role)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []cachedGrant
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return fromCached(cached), nil
		}
		c.logger.Warn("discarding malformed grant cache entry", zap.String("role", string(role)))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("grant cache read failed", zap.String("role", string(role)), zap.Error(err))
	}

	grants, err := c.next.GrantsForRole(ctx, role)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(toCached(grants))
	if err == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("grant cache write failed", zap.String("role", string(role)), zap.Error(setErr))
		}
	}
	return grants, nil
}

// Invalidate drops cached grants for the given roles, or for every role when none are given.
func (c *CachedGrantLookup) Invalidate(ctx context.Context, roles ...domain.Role) error {
	if len(roles) == 0 {
		roles = domain.AllRoles
	}
	keys := make([]string, len(roles))
	for i, role := range roles {
		keys[i] = grantCachePrefix + string(role)
	}
	return c.client.Del(ctx, keys...).Err()
}

func toCached(grants []domain.PermissionGrant) []cachedGrant {
	out := make([]cachedGrant, len(grants))
	for i, g := range grants {
		out[i] = cachedGrant{
			ID:               g.ID,
			Role:             string(g.Role),
			Key:              string(g.Key),
			DepartmentScoped: g.DepartmentScoped,
			DepartmentID:     g.DepartmentID,
		}
	}
	return out
}

func fromCached(cached []cachedGrant) []domain.PermissionGrant {
	out := make([]domain.PermissionGrant, len(cached))
	for i, g := range cached {
		out[i] = domain.PermissionGrant{
			ID:               g.ID,
			Role:             domain.Role(g.Role),
			Key:              domain.PermissionKey(g.Key),
			DepartmentScoped: g.DepartmentScoped,
			DepartmentID:     g.DepartmentID,
		}
	}
	return out
}
