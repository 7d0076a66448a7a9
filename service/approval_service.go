package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentgate/agentgate/audit"
	"github.com/agentgate/agentgate/engine"
	gate_errors "github.com/agentgate/agentgate/errors"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
	"github.com/agentgate/agentgate/util"
)

// IApprovalService is the workflow-side surface of the engine.
type IApprovalService interface {
	ListForAgent(ctx context.Context, agentID string) ([]model.ApprovalRequest, error)
	List(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error)
	GetRequest(ctx context.Context, requestID string) (*model.ApprovalRequest, error)
	PendingRequests(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error)
	Respond(ctx context.Context, action model.ApprovalAction) (*model.ApprovalRequest, error)
	BatchDecide(ctx context.Context, requestIDs []string, approver model.PermissionSubject, approved bool, comment string) (*model.BatchResult, error)
	Cancel(ctx context.Context, requestID, operatorID, reason string) error
	Statistics(ctx context.Context) (*model.ApprovalStatistics, error)
}

// ApprovalService handles business logic for the approval request lifecycle.
type ApprovalService struct {
	store           *engine.PolicyStore
	registry        *engine.WorkflowRegistry
	history         *engine.HistoryLog
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	auditService    audit.Service
}

// NewApprovalService creates a new instance of ApprovalService
func NewApprovalService(
	store *engine.PolicyStore,
	registry *engine.WorkflowRegistry,
	history *engine.HistoryLog,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	auditService audit.Service,
) *ApprovalService {
	service := &ApprovalService{
		store:           store,
		registry:        registry,
		history:         history,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		auditService:    auditService,
	}

	eventBus.Subscribe(util.EventApprovalResolved, service.handleResolved)

	return service
}

func (s *ApprovalService) handleResolved(ctx context.Context, event util.Event) error {
	request, ok := event.Payload.(model.ApprovalRequest)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyApprovalResolved(ctx, request); err != nil {
		logger.Warn("Failed to send resolution notification", zap.Error(err), zap.String("requestID", request.ID))
	}
	return nil
}

// ListForAgent returns every request of one known agent.
func (s *ApprovalService) ListForAgent(ctx context.Context, agentID string) ([]model.ApprovalRequest, error) {
	agentID = engine.NormalizeAgentID(agentID)
	if !s.store.Known(agentID) {
		return nil, gate_errors.ErrAgentNotFound
	}
	return s.registry.WorkflowFor(agentID).Requests(time.Now()), nil
}

// List returns every request across agents matching the filter.
func (s *ApprovalService) List(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error) {
	now := time.Now()
	all := s.registry.AllRequests(now)
	out := make([]model.ApprovalRequest, 0, len(all))
	for i := range all {
		if all[i].Matches(filter, now) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// GetRequest returns a snapshot of one request by its global id.
func (s *ApprovalService) GetRequest(ctx context.Context, requestID string) (*model.ApprovalRequest, error) {
	return s.registry.GetRequest(requestID)
}

// PendingRequests returns the actionable pending requests matching the
// filter. The returned slice is a snapshot; later store mutations do not
// change it.
func (s *ApprovalService) PendingRequests(ctx context.Context, filter model.ApprovalFilter) ([]model.ApprovalRequest, error) {
	filter.Status = model.StatusPending
	return s.List(ctx, filter)
}

// Respond applies one decision to a pending request. The decision is applied
// at most once even under concurrent calls; losers get
// ErrRequestAlreadyResolved.
func (s *ApprovalService) Respond(ctx context.Context, action model.ApprovalAction) (*model.ApprovalRequest, error) {
	if err := s.validationUtil.ValidateAction(action); err != nil {
		return nil, fmt.Errorf("%w: %s", gate_errors.ErrInvalidDecision, err.Error())
	}

	wf, err := s.registry.FindWorkflow(action.RequestID)
	if err != nil {
		return nil, err
	}
	request, err := wf.ProcessAction(action)
	if err != nil {
		return nil, err
	}

	kind := model.ChangeRequestApproved
	auditAction := "approval.approve"
	if !action.Approved {
		kind = model.ChangeRequestRejected
		auditAction = "approval.deny"
	}
	s.history.Append(model.ChangeRecord{
		AgentID:   request.AgentID,
		Kind:      kind,
		Actor:     action.Approver.ID,
		RequestID: request.ID,
		Detail:    action.Comment,
	})
	s.auditDecision(ctx, request, action.Approver.ID, auditAction)
	s.eventBus.Publish(ctx, util.EventApprovalResolved, *request)

	return request, nil
}

// BatchDecide applies one decision to many requests. Individual failures
// never abort the batch: every id yields a per-item result and the caller
// retries only the failed subset. A deny batch must carry a non-empty
// comment; that is rejected before any state changes.
func (s *ApprovalService) BatchDecide(ctx context.Context, requestIDs []string, approver model.PermissionSubject, approved bool, comment string) (*model.BatchResult, error) {
	if len(requestIDs) == 0 {
		return nil, gate_errors.ErrEmptyBatch
	}
	if err := s.validationUtil.ValidateSubject(approver); err != nil {
		return nil, fmt.Errorf("%w: approver: %s", gate_errors.ErrInvalidDecision, err.Error())
	}
	if !approved && comment == "" {
		return nil, gate_errors.ErrCommentRequired
	}

	g := new(errgroup.Group)
	results := make([]model.BatchItemResult, len(requestIDs))

	// Limit concurrency to avoid overwhelming the system
	semaphore := make(chan struct{}, 10)

	for i, requestID := range requestIDs {
		i, requestID := i, requestID
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			_, err := s.Respond(ctx, model.ApprovalAction{
				RequestID: requestID,
				Approver:  approver,
				Approved:  approved,
				Comment:   comment,
				Timestamp: time.Now(),
			})
			if err != nil {
				results[i] = model.BatchItemResult{RequestID: requestID, Success: false, Error: err.Error()}
				return nil
			}
			results[i] = model.BatchItemResult{RequestID: requestID, Success: true}
			return nil
		})
	}
	// Item errors are folded into the per-item results; Wait never fails.
	_ = g.Wait()

	batch := &model.BatchResult{Results: results, TotalCount: len(requestIDs)}
	for _, r := range results {
		if r.Success {
			batch.SuccessCount++
		}
	}

	logger.Info("Batch decision processed",
		zap.Bool("approved", approved),
		zap.Int("successCount", batch.SuccessCount),
		zap.Int("totalCount", batch.TotalCount))
	return batch, nil
}

// Cancel transitions a pending request to cancelled. Cancelling an unknown
// request or one that already reached a terminal state is rejected.
func (s *ApprovalService) Cancel(ctx context.Context, requestID, operatorID, reason string) error {
	wf, err := s.registry.FindWorkflow(requestID)
	if err != nil {
		return err
	}
	request, err := wf.Cancel(requestID, operatorID, reason)
	if err != nil {
		return err
	}

	s.history.Append(model.ChangeRecord{
		AgentID:   request.AgentID,
		Kind:      model.ChangeRequestCancelled,
		Actor:     operatorID,
		RequestID: request.ID,
		Detail:    reason,
	})
	s.auditDecision(ctx, request, operatorID, "approval.cancel")
	s.eventBus.Publish(ctx, util.EventApprovalCancelled, *request)
	return nil
}

// Statistics aggregates every request the process has created. Derived,
// wall-clock-dependent fields are recomputed on every call.
func (s *ApprovalService) Statistics(ctx context.Context) (*model.ApprovalStatistics, error) {
	now := time.Now()
	stats := engine.ComputeStatistics(s.registry.AllRequests(now), now)
	return &stats, nil
}

// SweepExpired performs one expiry pass and reports how many requests it
// flipped. Reads already treat overdue pending requests as expired; the
// sweep makes the stored status catch up.
func (s *ApprovalService) SweepExpired(ctx context.Context) int {
	flipped := s.registry.SweepExpired(time.Now())
	for i := range flipped {
		req := flipped[i]
		s.history.Append(model.ChangeRecord{
			AgentID:   req.AgentID,
			Kind:      model.ChangeRequestExpired,
			RequestID: req.ID,
		})
		s.eventBus.Publish(ctx, util.EventApprovalExpired, req)
	}
	if len(flipped) > 0 {
		logger.Info("Expired approval requests swept", zap.Int("count", len(flipped)))
	}
	return len(flipped)
}

// StartSweeper runs the expiry sweep on a timer until the context is done.
func (s *ApprovalService) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepExpired(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *ApprovalService) auditDecision(ctx context.Context, request *model.ApprovalRequest, actorID, action string) {
	if s.auditService == nil {
		return
	}
	details, _ := json.Marshal(request)
	if err := s.auditService.LogEvent(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		AgentID:       request.AgentID,
		ActorID:       actorID,
		Action:        action,
		RequestID:     request.ID,
		Outcome:       string(request.Status),
		ChangeDetails: details,
	}); err != nil {
		logger.Warn("Failed to audit decision", zap.Error(err), zap.String("requestID", request.ID))
	}
}
