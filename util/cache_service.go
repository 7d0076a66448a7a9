// util/cache_service.go

package util

import (
	"context"

	"github.com/agentgate/agentgate/db"
	"github.com/agentgate/agentgate/model"
)

// CacheService is a read-through cache for agent permission configurations,
// backed by Redis. A miss returns (nil, nil); the caller falls back to the
// in-memory store or the durable store.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetAgentConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	return db.GetCachedAgentConfig(ctx, agentID)
}

func (c *CacheService) SetAgentConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig) error {
	return db.CacheAgentConfig(ctx, agentID, config)
}

func (c *CacheService) DeleteAgentConfig(ctx context.Context, agentID string) error {
	return db.DeleteCachedAgentConfig(ctx, agentID)
}
