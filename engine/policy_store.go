// engine/policy_store.go
package engine

import (
	"strings"
	"sync"

	gate_errors "github.com/agentgate/agentgate/errors"
	"github.com/agentgate/agentgate/model"
)

// NormalizeAgentID canonicalizes an agent identifier before every lookup.
func NormalizeAgentID(agentID string) string {
	return strings.ToLower(strings.TrimSpace(agentID))
}

// PolicyStore holds the validated permission configuration of every known
// agent. Configurations are replaced wholesale; there are no partial rule
// edits. Lookups against agents that were never registered fail before any
// policy or workflow state is touched.
type PolicyStore struct {
	mu      sync.RWMutex
	configs map[string]*model.AgentPermissionsConfig
}

func NewPolicyStore() *PolicyStore {
	return &PolicyStore{configs: make(map[string]*model.AgentPermissionsConfig)}
}

// Register makes an agent known, with or without an initial configuration.
// Registering an already-known agent with a nil config leaves its current
// configuration in place.
func (ps *PolicyStore) Register(agentID string, config *model.AgentPermissionsConfig) {
	id := NormalizeAgentID(agentID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if existing, ok := ps.configs[id]; ok && config == nil {
		ps.configs[id] = existing
		return
	}
	ps.configs[id] = config
}

// Known reports whether the agent has been registered.
func (ps *PolicyStore) Known(agentID string) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	_, ok := ps.configs[NormalizeAgentID(agentID)]
	return ok
}

// Get returns the agent's configuration. The config may be nil for a known
// agent that has never been configured; an unknown agent is an error.
func (ps *PolicyStore) Get(agentID string) (*model.AgentPermissionsConfig, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	config, ok := ps.configs[NormalizeAgentID(agentID)]
	if !ok {
		return nil, gate_errors.ErrAgentNotFound
	}
	return config, nil
}

// Replace atomically swaps in a new configuration for a known agent. The
// previous configuration stays fully in effect if the agent is unknown.
func (ps *PolicyStore) Replace(agentID string, config *model.AgentPermissionsConfig) error {
	id := NormalizeAgentID(agentID)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.configs[id]; !ok {
		return gate_errors.ErrAgentNotFound
	}
	ps.configs[id] = config
	return nil
}

// AgentIDs returns every registered agent id.
func (ps *PolicyStore) AgentIDs() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	ids := make([]string, 0, len(ps.configs))
	for id := range ps.configs {
		ids = append(ids, id)
	}
	return ids
}
