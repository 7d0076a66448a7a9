// service/services.go
package service

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agentgate/agentgate/audit"
	"github.com/agentgate/agentgate/dao"
	"github.com/agentgate/agentgate/engine"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/util"
)

type Services struct {
	Permission IPermissionService
	Approval   IApprovalService

	// Concrete services, for startup wiring only: seeding the policy
	// store and starting the background expiry sweep.
	Loader  *PermissionService
	Sweeper *ApprovalService
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	defaultAction model.RuleAction,
	requestTTL time.Duration,
) (*Services, error) {
	agentConfigDAO := dao.NewAgentConfigDAO(driver, auditService)

	store := engine.NewPolicyStore()
	registry := engine.NewWorkflowRegistry()
	history := engine.NewHistoryLog()
	evaluator := engine.NewRuleEvaluator(defaultAction)

	approvalService := NewApprovalService(store, registry, history, validationUtil, notificationSvc, eventBus, auditService)
	permissionService := NewPermissionService(agentConfigDAO, store, registry, history, evaluator, validationUtil, cacheService, notificationSvc, eventBus, requestTTL)

	services := &Services{
		Permission: permissionService,
		Approval:   approvalService,
		Loader:     permissionService,
		Sweeper:    approvalService,
	}

	return services, nil
}
