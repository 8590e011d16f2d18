package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisContextCache is the shared ContextCache backend for multi-instance
// deployments: an invalidation issued by one replica is visible to all.
// Read and write failures degrade to cache misses so Redis outages slow
// requests down instead of breaking authorization.
type RedisContextCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisContextCache wraps a go-redis client. A non-positive TTL falls
// back to DefaultContextTTL.
func NewRedisContextCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisContextCache {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &RedisContextCache{client: client, ttl: ttl, log: logger}
}

func contextCacheKey(userID uuid.UUID) string {
	return "rbac:usercontext:" + userID.String()
}

// userContextSnapshot is the wire form of a UserContext for the shared
// cache. Permissions travel in their string form.
type userContextSnapshot struct {
	UserID                uuid.UUID   `json:"user_id"`
	IsSuperAdmin          bool        `json:"is_super_admin"`
	CurrentOrganizationID *uuid.UUID  `json:"current_organization_id,omitempty"`
	RoleNames             []string    `json:"role_names,omitempty"`
	OrganizationIDs       []uuid.UUID `json:"organization_ids,omitempty"`
	AccessibleIDs         []uuid.UUID `json:"accessible_organization_ids,omitempty"`
	Permissions           []string    `json:"permissions,omitempty"`
}

func snapshotUserContext(uc *UserContext) userContextSnapshot {
	perms := make([]string, 0, len(uc.permissions))
	for _, p := range uc.permissions {
		perms = append(perms, p.String())
	}
	return userContextSnapshot{
		UserID:                uc.userID,
		IsSuperAdmin:          uc.isSuperAdmin,
		CurrentOrganizationID: uc.currentOrganizationID,
		RoleNames:             uc.roleNames,
		OrganizationIDs:       uc.organizationIDs,
		AccessibleIDs:         uc.accessibleIDs,
		Permissions:           perms,
	}
}

func (s userContextSnapshot) restore() (*UserContext, error) {
	perms := make([]Permission, 0, len(s.Permissions))
	for _, name := range s.Permissions {
		p, err := ParsePermission(name)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return NewUserContext(UserContextParams{
		UserID:                    s.UserID,
		IsSuperAdmin:              s.IsSuperAdmin,
		CurrentOrganizationID:     s.CurrentOrganizationID,
		RoleNames:                 s.RoleNames,
		OrganizationIDs:           s.OrganizationIDs,
		AccessibleOrganizationIDs: s.AccessibleIDs,
		Permissions:               perms,
	}), nil
}

func (c *RedisContextCache) Get(ctx context.Context, userID uuid.UUID) (*UserContext, bool) {
	raw, err := c.client.Get(ctx, contextCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Stringer("user_id", userID).Msg("user context cache read failed")
		}
		return nil, false
	}
	var snap userContextSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Warn().Err(err).Stringer("user_id", userID).Msg("user context cache entry corrupt")
		return nil, false
	}
	uc, err := snap.restore()
	if err != nil {
		c.log.Warn().Err(err).Stringer("user_id", userID).Msg("user context cache entry unparseable")
		return nil, false
	}
	return uc, true
}

func (c *RedisContextCache) Set(ctx context.Context, userID uuid.UUID, uc *UserContext) error {
	raw, err := json.Marshal(snapshotUserContext(uc))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, contextCacheKey(userID), raw, c.ttl).Err()
}

func (c *RedisContextCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, contextCacheKey(userID)).Err()
}
