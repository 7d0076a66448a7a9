package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentgate/agentgate/engine"
	gate_errors "github.com/agentgate/agentgate/errors"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/util"
)

// ConfigPersister is the durable store for agent configurations. The write
// must succeed before any in-memory state is mutated.
type ConfigPersister interface {
	SaveConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error
	GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error)
	ListAgentIDs(ctx context.Context) ([]string, error)
}

// ConfigCache fronts the policy store with a read-through cache. An entry
// that cannot be refreshed on update must be invalidated, never left stale:
// get must not serve rules evaluate no longer enforces.
type ConfigCache interface {
	GetAgentConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error)
	SetAgentConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig) error
	DeleteAgentConfig(ctx context.Context, agentID string) error
}

// IPermissionService is the policy-side surface of the engine.
type IPermissionService interface {
	GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error)
	UpdateConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error
	History(ctx context.Context, agentID string, limit int) ([]model.ChangeRecord, error)
	Evaluate(ctx context.Context, invocation model.ToolInvocation) (*model.EvaluationResult, error)
}

// PermissionService handles business logic for permission configuration and
// rule evaluation.
type PermissionService struct {
	persister       ConfigPersister
	store           *engine.PolicyStore
	registry        *engine.WorkflowRegistry
	history         *engine.HistoryLog
	resolver        *engine.SubjectResolver
	evaluator       *engine.RuleEvaluator
	validationUtil  *util.ValidationUtil
	cacheService    ConfigCache
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	requestTTL      time.Duration
}

// NewPermissionService creates a new instance of PermissionService
func NewPermissionService(
	persister ConfigPersister,
	store *engine.PolicyStore,
	registry *engine.WorkflowRegistry,
	history *engine.HistoryLog,
	evaluator *engine.RuleEvaluator,
	validationUtil *util.ValidationUtil,
	cacheService ConfigCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	requestTTL time.Duration,
) *PermissionService {
	service := &PermissionService{
		persister:       persister,
		store:           store,
		registry:        registry,
		history:         history,
		resolver:        engine.NewSubjectResolver(),
		evaluator:       evaluator,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		requestTTL:      requestTTL,
	}

	eventBus.Subscribe(util.EventPermissionUpdated, service.handleConfigUpdated)

	return service
}

func (s *PermissionService) handleConfigUpdated(ctx context.Context, event util.Event) error {
	agentID, ok := event.Payload.(string)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyConfigChange(ctx, agentID, ""); err != nil {
		logger.Warn("Failed to send config change notification", zap.Error(err), zap.String("agentID", agentID))
	}
	return nil
}

// LoadPersistedConfigs seeds the in-memory policy store from the durable
// store at startup.
func (s *PermissionService) LoadPersistedConfigs(ctx context.Context) error {
	ids, err := s.persister.ListAgentIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted agents: %w", err)
	}
	for _, id := range ids {
		config, err := s.persister.GetConfig(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load config for agent %s: %w", id, err)
		}
		s.store.Register(id, config)
	}
	logger.Info("Loaded persisted agent configs", zap.Int("count", len(ids)))
	return nil
}

// RegisterAgent makes an agent known without configuring it.
func (s *PermissionService) RegisterAgent(agentID string) {
	s.store.Register(agentID, nil)
}

// GetConfig returns the agent's active configuration. The config may be nil
// for a known agent that was never configured.
func (s *PermissionService) GetConfig(ctx context.Context, agentID string) (*model.AgentPermissionsConfig, error) {
	agentID = engine.NormalizeAgentID(agentID)
	if !s.store.Known(agentID) {
		return nil, gate_errors.ErrAgentNotFound
	}

	// Try the cache first; the in-memory store is authoritative on a miss.
	cached, err := s.cacheService.GetAgentConfig(ctx, agentID)
	if err == nil && cached != nil {
		return cached, nil
	}

	return s.store.Get(agentID)
}

// UpdateConfig validates and installs a new configuration for a known agent.
// The update is all-or-nothing: a validation or persistence failure leaves
// the previously active rules and workflow instance fully in effect.
func (s *PermissionService) UpdateConfig(ctx context.Context, agentID string, config *model.AgentPermissionsConfig, actorID string) error {
	agentID = engine.NormalizeAgentID(agentID)
	if !s.store.Known(agentID) {
		return gate_errors.ErrAgentNotFound
	}

	if err := s.validationUtil.ValidateAgentConfig(config); err != nil {
		return fmt.Errorf("%w: %s", gate_errors.ErrInvalidConfig, err.Error())
	}

	// Durable write first. On failure nothing in memory has changed.
	if err := s.persister.SaveConfig(ctx, agentID, config, actorID); err != nil {
		logger.Error("Error persisting agent config", zap.Error(err), zap.String("agentID", agentID))
		if errors.Is(err, gate_errors.ErrPersistenceFailure) {
			return err
		}
		return gate_errors.ErrPersistenceFailure
	}

	if err := s.store.Replace(agentID, config); err != nil {
		return err
	}
	// Fresh workflow instance so stale rule references never leak into new
	// decisions; in-flight requests are migrated, not orphaned.
	s.registry.Replace(agentID)

	// A cache write failure must not leave the previous rules readable:
	// drop the entry so reads fall through to the store just installed.
	if err := s.cacheService.SetAgentConfig(ctx, agentID, config); err != nil {
		logger.Warn("Failed to cache agent config, invalidating entry", zap.Error(err), zap.String("agentID", agentID))
		if delErr := s.cacheService.DeleteAgentConfig(ctx, agentID); delErr != nil {
			logger.Error("Failed to invalidate stale cached config", zap.Error(delErr), zap.String("agentID", agentID))
		}
	}

	s.history.Append(model.ChangeRecord{
		AgentID: agentID,
		Kind:    model.ChangeConfigUpdated,
		Actor:   actorID,
		Detail:  fmt.Sprintf("%d rules, %d roles, %d groups", len(config.Rules), len(config.Roles), len(config.Groups)),
	})
	s.eventBus.Publish(ctx, util.EventPermissionUpdated, agentID)

	logger.Info("Agent config updated", zap.String("agentID", agentID), zap.String("actorID", actorID))
	return nil
}

// History returns the most recent change records for the agent.
func (s *PermissionService) History(ctx context.Context, agentID string, limit int) ([]model.ChangeRecord, error) {
	return s.history.Tail(engine.NormalizeAgentID(agentID), limit), nil
}

// Evaluate resolves the caller's subjects, evaluates the agent's rules and,
// when the decision is require_approval, creates a pending approval request.
func (s *PermissionService) Evaluate(ctx context.Context, invocation model.ToolInvocation) (*model.EvaluationResult, error) {
	agentID := engine.NormalizeAgentID(invocation.AgentID)
	config, err := s.store.Get(agentID)
	if err != nil {
		return nil, err
	}
	if invocation.ToolName == "" {
		return nil, fmt.Errorf("%w: tool name cannot be empty", gate_errors.ErrInvalidConfig)
	}

	var rules []model.PermissionRule
	var roles []model.Role
	var groups []model.Group
	if config != nil {
		rules, roles, groups = config.Rules, config.Roles, config.Groups
	}

	subjects := s.resolver.Resolve(invocation.CallerID, roles, groups)
	decision := s.evaluator.Evaluate(invocation.ToolName, subjects, rules)

	result := &model.EvaluationResult{Decision: decision}
	if decision != model.ActionRequireApproval {
		return result, nil
	}

	callerType := invocation.CallerType
	if callerType == "" {
		callerType = model.RequesterTypeUser
	}
	expiresAt := time.Now().Add(s.requestTTL)
	request := s.registry.CreateRequest(agentID, engine.CreateRequestInput{
		Title:           fmt.Sprintf("Approval required: %s", invocation.ToolName),
		Description:     fmt.Sprintf("Caller %s requested tool %s", invocation.CallerID, invocation.ToolName),
		Reason:          invocation.Reason,
		RequestedAction: invocation.ToolName,
		TargetID:        invocation.TargetID,
		Requester: model.Requester{
			Type: callerType,
			ID:   invocation.CallerID,
			Name: invocation.CallerName,
		},
		Priority:  invocation.Priority,
		ExpiresAt: &expiresAt,
	})
	result.Request = request

	s.history.Append(model.ChangeRecord{
		AgentID:   agentID,
		Kind:      model.ChangeRequestCreated,
		Actor:     invocation.CallerID,
		RequestID: request.ID,
		Detail:    invocation.ToolName,
	})
	s.eventBus.Publish(ctx, util.EventApprovalCreated, *request)

	var approvers []model.PermissionSubject
	if config != nil && config.ApprovalConfig != nil {
		approvers = config.ApprovalConfig.Approvers
	}
	if err := s.notificationSvc.NotifyApprovalRequested(ctx, *request, approvers); err != nil {
		logger.Warn("Failed to notify approvers", zap.Error(err), zap.String("requestID", request.ID))
	}

	return result, nil
}
