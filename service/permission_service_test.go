// service/permission_service_test.go
package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/engine"
	gate_errors "github.com/agentgate/agentgate/errors"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/service"
	"github.com/agentgate/agentgate/test/mock"
	"github.com/agentgate/agentgate/util"
)

type permissionFixture struct {
	persister *mock.MockConfigPersister
	store     *engine.PolicyStore
	registry  *engine.WorkflowRegistry
	history   *engine.HistoryLog
	svc       *service.PermissionService
}

func newPermissionFixture(t *testing.T) *permissionFixture {
	t.Helper()
	persister := new(mock.MockConfigPersister)
	store := engine.NewPolicyStore()
	registry := engine.NewWorkflowRegistry()
	history := engine.NewHistoryLog()

	svc := service.NewPermissionService(
		persister,
		store,
		registry,
		history,
		engine.NewRuleEvaluator(model.ActionDeny),
		util.NewValidationUtil(),
		util.NewCacheService(),
		util.NewNotificationService(),
		util.NewEventBus(),
		24*time.Hour,
	)
	return &permissionFixture{persister: persister, store: store, registry: registry, history: history, svc: svc}
}

// fakeConfigCache is a stateful stand-in for the Redis-backed cache so the
// read-through and invalidation paths can be exercised without a server.
type fakeConfigCache struct {
	entries map[string]*model.AgentPermissionsConfig
	failSet bool
}

func newFakeConfigCache() *fakeConfigCache {
	return &fakeConfigCache{entries: make(map[string]*model.AgentPermissionsConfig)}
}

func (f *fakeConfigCache) GetAgentConfig(_ context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	return f.entries[agentID], nil
}

func (f *fakeConfigCache) SetAgentConfig(_ context.Context, agentID string, config *model.AgentPermissionsConfig) error {
	if f.failSet {
		return errors.New("redis unreachable")
	}
	f.entries[agentID] = config
	return nil
}

func (f *fakeConfigCache) DeleteAgentConfig(_ context.Context, agentID string) error {
	delete(f.entries, agentID)
	return nil
}

func deployConfig(action model.RuleAction) *model.AgentPermissionsConfig {
	return &model.AgentPermissionsConfig{
		Rules: []model.PermissionRule{
			{
				ID:       "r1",
				ToolName: "deploy",
				Subjects: []model.PermissionSubject{{Type: model.SubjectTypeUser, ID: "alice"}},
				Action:   action,
			},
		},
	}
}

func TestPermissionServiceGetConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownAgent", func(t *testing.T) {
		f := newPermissionFixture(t)
		_, err := f.svc.GetConfig(ctx, "ghost")
		assert.ErrorIs(t, err, gate_errors.ErrAgentNotFound)
	})

	t.Run("KnownAgentWithoutConfig", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")

		config, err := f.svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Nil(t, config)
	})

	t.Run("NormalizesAgentID", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")

		_, err := f.svc.GetConfig(ctx, "  AGENT-1 ")
		assert.NoError(t, err)
	})
}

func TestPermissionServiceUpdateConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistThenInstall", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")
		config := deployConfig(model.ActionAllow)
		f.persister.On("SaveConfig", testify_mock.Anything, "agent-1", config, "admin").Return(nil)

		require.NoError(t, f.svc.UpdateConfig(ctx, "agent-1", config, "admin"))
		f.persister.AssertExpectations(t)

		installed, err := f.svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, config, installed)

		records := f.history.Tail("agent-1", 0)
		require.Len(t, records, 1)
		assert.Equal(t, model.ChangeConfigUpdated, records[0].Kind)
		assert.Equal(t, "admin", records[0].Actor)
	})

	t.Run("UnknownAgentRejected", func(t *testing.T) {
		f := newPermissionFixture(t)
		err := f.svc.UpdateConfig(ctx, "ghost", deployConfig(model.ActionAllow), "admin")
		assert.ErrorIs(t, err, gate_errors.ErrAgentNotFound)
		f.persister.AssertNotCalled(t, "SaveConfig")
	})

	t.Run("ValidationFailureLeavesPriorConfig", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")
		prior := deployConfig(model.ActionAllow)
		f.persister.On("SaveConfig", testify_mock.Anything, "agent-1", prior, "admin").Return(nil)
		require.NoError(t, f.svc.UpdateConfig(ctx, "agent-1", prior, "admin"))

		invalid := &model.AgentPermissionsConfig{Rules: nil}
		err := f.svc.UpdateConfig(ctx, "agent-1", invalid, "admin")
		assert.ErrorIs(t, err, gate_errors.ErrInvalidConfig)

		installed, err := f.svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, prior, installed)
	})

	t.Run("PersistenceFailureLeavesMemoryUntouched", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")
		config := deployConfig(model.ActionAllow)
		f.persister.On("SaveConfig", testify_mock.Anything, "agent-1", config, "admin").
			Return(errors.New("neo4j unreachable"))

		err := f.svc.UpdateConfig(ctx, "agent-1", config, "admin")
		assert.ErrorIs(t, err, gate_errors.ErrPersistenceFailure)

		installed, err := f.svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Nil(t, installed)
		assert.Empty(t, f.history.Tail("agent-1", 0))
	})

	t.Run("CacheWriteFailureInvalidatesStaleEntry", func(t *testing.T) {
		persister := new(mock.MockConfigPersister)
		cache := newFakeConfigCache()
		svc := service.NewPermissionService(
			persister,
			engine.NewPolicyStore(),
			engine.NewWorkflowRegistry(),
			engine.NewHistoryLog(),
			engine.NewRuleEvaluator(model.ActionDeny),
			util.NewValidationUtil(),
			cache,
			util.NewNotificationService(),
			util.NewEventBus(),
			24*time.Hour,
		)
		svc.RegisterAgent("agent-1")
		persister.On("SaveConfig", testify_mock.Anything, "agent-1", testify_mock.Anything, testify_mock.Anything).Return(nil)

		old := deployConfig(model.ActionAllow)
		cache.entries["agent-1"] = old
		cache.failSet = true

		updated := deployConfig(model.ActionDeny)
		require.NoError(t, svc.UpdateConfig(ctx, "agent-1", updated, "admin"))

		// The old entry must not survive a failed refresh; reads fall through
		// to the store and see the rules the evaluator now enforces.
		installed, err := svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, updated, installed)
		assert.NotContains(t, cache.entries, "agent-1")
	})

	t.Run("UpdateReplacesWorkflowButKeepsPending", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.svc.RegisterAgent("agent-1")
		f.persister.On("SaveConfig", testify_mock.Anything, "agent-1", testify_mock.Anything, testify_mock.Anything).Return(nil)

		req := f.registry.CreateRequest("agent-1", engine.CreateRequestInput{
			Title:           "Approval required: deploy",
			RequestedAction: "deploy",
			Requester:       model.Requester{Type: model.RequesterTypeUser, ID: "alice"},
		})
		oldWorkflow := f.registry.WorkflowFor("agent-1")

		require.NoError(t, f.svc.UpdateConfig(ctx, "agent-1", deployConfig(model.ActionDeny), "admin"))

		assert.NotSame(t, oldWorkflow, f.registry.WorkflowFor("agent-1"))
		migrated, err := f.registry.GetRequest(req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, migrated.Status)
	})
}

func TestPermissionServiceEvaluate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, action model.RuleAction) *permissionFixture {
		f := newPermissionFixture(t)
		f.store.Register("agent-1", deployConfig(action))
		return f
	}

	t.Run("Allow", func(t *testing.T) {
		f := setup(t, model.ActionAllow)
		result, err := f.svc.Evaluate(ctx, model.ToolInvocation{AgentID: "agent-1", CallerID: "alice", ToolName: "deploy"})
		require.NoError(t, err)
		assert.Equal(t, model.ActionAllow, result.Decision)
		assert.Nil(t, result.Request)
	})

	t.Run("DenyByDefaultForUnmatchedCaller", func(t *testing.T) {
		f := setup(t, model.ActionAllow)
		result, err := f.svc.Evaluate(ctx, model.ToolInvocation{AgentID: "agent-1", CallerID: "mallory", ToolName: "deploy"})
		require.NoError(t, err)
		assert.Equal(t, model.ActionDeny, result.Decision)
	})

	t.Run("RequireApprovalCreatesPendingRequest", func(t *testing.T) {
		f := setup(t, model.ActionRequireApproval)
		result, err := f.svc.Evaluate(ctx, model.ToolInvocation{
			AgentID:  "agent-1",
			CallerID: "alice",
			ToolName: "deploy",
			Reason:   "ship the fix",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ActionRequireApproval, result.Decision)
		require.NotNil(t, result.Request)
		assert.Equal(t, model.StatusPending, result.Request.Status)
		assert.Equal(t, "alice", result.Request.Requester.ID)
		require.NotNil(t, result.Request.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), *result.Request.ExpiresAt, time.Minute)

		// The request is findable through the global id index.
		_, err = f.registry.GetRequest(result.Request.ID)
		assert.NoError(t, err)

		records := f.history.Tail("agent-1", 0)
		require.Len(t, records, 1)
		assert.Equal(t, model.ChangeRequestCreated, records[0].Kind)
	})

	t.Run("UnknownAgent", func(t *testing.T) {
		f := newPermissionFixture(t)
		_, err := f.svc.Evaluate(ctx, model.ToolInvocation{AgentID: "ghost", CallerID: "alice", ToolName: "deploy"})
		assert.ErrorIs(t, err, gate_errors.ErrAgentNotFound)
	})

	t.Run("EmptyToolName", func(t *testing.T) {
		f := setup(t, model.ActionAllow)
		_, err := f.svc.Evaluate(ctx, model.ToolInvocation{AgentID: "agent-1", CallerID: "alice"})
		assert.ErrorIs(t, err, gate_errors.ErrInvalidConfig)
	})
}

func TestPermissionServiceLoadPersistedConfigs(t *testing.T) {
	ctx := context.Background()

	t.Run("SeedsStoreFromPersister", func(t *testing.T) {
		f := newPermissionFixture(t)
		config := deployConfig(model.ActionAllow)
		f.persister.On("ListAgentIDs", testify_mock.Anything).Return([]string{"agent-1", "agent-2"}, nil)
		f.persister.On("GetConfig", testify_mock.Anything, "agent-1").Return(config, nil)
		f.persister.On("GetConfig", testify_mock.Anything, "agent-2").Return(nil, nil)

		require.NoError(t, f.svc.LoadPersistedConfigs(ctx))

		installed, err := f.svc.GetConfig(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, config, installed)

		empty, err := f.svc.GetConfig(ctx, "agent-2")
		require.NoError(t, err)
		assert.Nil(t, empty)
	})

	t.Run("ListFailurePropagates", func(t *testing.T) {
		f := newPermissionFixture(t)
		f.persister.On("ListAgentIDs", testify_mock.Anything).Return(nil, errors.New("neo4j unreachable"))
		assert.Error(t, f.svc.LoadPersistedConfigs(ctx))
	})
}
