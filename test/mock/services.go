// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/agentgate/agentgate/model"
)

// MockPermissionService is a mock implementation of service.IPermissionService
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentPermissionsConfig), args.Error(1)
}

func (m *MockPermissionService) UpdateConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error {
	args := m.Called(ctx, agentID, config, actorID)
	return args.Error(0)
}

func (m *MockPermissionService) History(ctx context.Context, agentID string, limit int) ([]model.ChangeRecord, error) {
	args := m.Called(ctx, agentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChangeRecord), args.Error(1)
}

func (m *MockPermissionService) Evaluate(ctx context.Context, invocation model.ToolInvocation) (*model.EvaluationResult, error) {
	args := m.Called(ctx, invocation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EvaluationResult), args.Error(1)
}

// MockApprovalService is a mock implementation of service.IApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) ListForAgent(ctx context.Context, agentID string) ([]model.ApprovalRequest, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) List(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) GetRequest(ctx context.Context, requestID string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) PendingRequests(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) Respond(ctx context.Context, action model.ApprovalAction) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalService) BatchDecide(ctx context.Context, requestIDs []string, approver model.PermissionSubject, approved bool, comment string) (*model.BatchResult, error) {
	args := m.Called(ctx, requestIDs, approver, approved, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchResult), args.Error(1)
}

func (m *MockApprovalService) Cancel(ctx context.Context, requestID, operatorID, reason string) error {
	args := m.Called(ctx, requestID, operatorID, reason)
	return args.Error(0)
}

func (m *MockApprovalService) Statistics(ctx context.Context) (*model.ApprovalStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalStatistics), args.Error(1)
}
