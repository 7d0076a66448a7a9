// test/mock/persister.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/agentgate/agentgate/model"
)

// MockConfigPersister is a mock implementation of service.ConfigPersister
type MockConfigPersister struct {
	mock.Mock
}

func (m *MockConfigPersister) SaveConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error {
	args := m.Called(ctx, agentID, config, actorID)
	return args.Error(0)
}

func (m *MockConfigPersister) GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentPermissionsConfig), args.Error(1)
}

func (m *MockConfigPersister) ListAgentIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
