// engine/workflow.go
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gate_errors "github.com/agentgate/agentgate/errors"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

// ApprovalWorkflow owns the approval requests of a single agent. It is the
// unit of mutual exclusion: all mutations of requests belonging to one agent
// are serialized on its mutex, so two concurrent decisions on the same
// request can never both win.
type ApprovalWorkflow struct {
	agentID  string
	mu       sync.RWMutex
	requests map[string]*model.ApprovalRequest
}

func NewApprovalWorkflow(agentID string) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		agentID:  agentID,
		requests: make(map[string]*model.ApprovalRequest),
	}
}

// AgentID returns the owning agent's normalized id.
func (w *ApprovalWorkflow) AgentID() string {
	return w.agentID
}

// CreateRequestInput carries the caller-supplied fields of a new request.
type CreateRequestInput struct {
	Title           string
	Description     string
	Reason          string
	RequestedAction string
	TargetID        string
	Requester       model.Requester
	Priority        model.ApprovalPriority
	ExpiresAt       *time.Time
}

// CreateRequest allocates an id, stores the request as pending and returns a
// snapshot of it.
func (w *ApprovalWorkflow) CreateRequest(in CreateRequestInput) *model.ApprovalRequest {
	priority := in.Priority
	if !priority.Valid() {
		priority = model.PriorityNormal
	}

	req := &model.ApprovalRequest{
		ID:              uuid.New().String(),
		AgentID:         w.agentID,
		Title:           in.Title,
		Description:     in.Description,
		Reason:          in.Reason,
		RequestedAction: in.RequestedAction,
		TargetID:        in.TargetID,
		Requester:       in.Requester,
		Priority:        priority,
		Status:          model.StatusPending,
		CreatedAt:       time.Now(),
		ExpiresAt:       in.ExpiresAt,
		Approvals:       []model.ApprovalDecision{},
	}

	w.mu.Lock()
	w.requests[req.ID] = req
	w.mu.Unlock()

	logger.Info("Approval request created",
		zap.String("requestID", req.ID),
		zap.String("agentID", w.agentID),
		zap.String("action", req.RequestedAction),
		zap.String("priority", string(req.Priority)))
	return req.Clone()
}

// Get returns a snapshot of the request, or nil if it does not exist.
func (w *ApprovalWorkflow) Get(id string) *model.ApprovalRequest {
	w.mu.RLock()
	defer w.mu.RUnlock()
	req, ok := w.requests[id]
	if !ok {
		return nil
	}
	return snapshotRequest(req, time.Now())
}

// PendingRequests returns snapshots of every actionable pending request,
// optionally narrowed by filter. Overdue requests are excluded, so listing
// never reports an expired request as actionable.
func (w *ApprovalWorkflow) PendingRequests(filter model.ApprovalFilter, now time.Time) []model.ApprovalRequest {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.ApprovalRequest, 0)
	for _, req := range w.requests {
		if req.EffectiveStatus(now) != model.StatusPending {
			continue
		}
		if !req.Matches(filter, now) {
			continue
		}
		out = append(out, *req.Clone())
	}
	return out
}

// Requests returns snapshots of every request the workflow holds. Snapshots
// present the effective status; the stored record of an overdue request stays
// pending until SweepExpired flips it, so the sweep remains the single place
// an expiry is recorded and reported.
func (w *ApprovalWorkflow) Requests(now time.Time) []model.ApprovalRequest {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.ApprovalRequest, 0, len(w.requests))
	for _, req := range w.requests {
		out = append(out, *snapshotRequest(req, now))
	}
	return out
}

// ProcessAction applies a single decision to a pending request. It is applied
// at most once: a second decision on the same request fails with
// ErrRequestAlreadyResolved no matter how the calls interleave.
func (w *ApprovalWorkflow) ProcessAction(action model.ApprovalAction) (*model.ApprovalRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, ok := w.requests[action.RequestID]
	if !ok {
		return nil, gate_errors.ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return nil, gate_errors.ErrRequestAlreadyResolved
	}
	now := action.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	// An overdue request is not flipped here; the sweep does that and
	// records the expiry.
	if requestOverdue(req, now) {
		return nil, gate_errors.ErrRequestExpired
	}

	if action.Approved {
		req.Status = model.StatusApproved
	} else {
		req.Status = model.StatusRejected
	}
	req.Approvals = append(req.Approvals, model.ApprovalDecision{
		Approver:  action.Approver,
		Approved:  action.Approved,
		Comment:   action.Comment,
		Timestamp: now,
	})
	resolved := now
	req.ResolvedAt = &resolved

	logger.Info("Approval request resolved",
		zap.String("requestID", req.ID),
		zap.String("agentID", w.agentID),
		zap.String("status", string(req.Status)),
		zap.String("approver", action.Approver.ID))
	return req.Clone(), nil
}

// Cancel transitions a pending request to cancelled. Cancelling an unknown id
// fails with ErrRequestNotFound; cancelling an already-resolved request is
// rejected with ErrRequestAlreadyResolved rather than treated as a no-op.
func (w *ApprovalWorkflow) Cancel(id, operatorID, reason string) (*model.ApprovalRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, ok := w.requests[id]
	if !ok {
		return nil, gate_errors.ErrRequestNotFound
	}
	if req.Status.Terminal() {
		return nil, gate_errors.ErrRequestAlreadyResolved
	}
	now := time.Now()
	if requestOverdue(req, now) {
		return nil, gate_errors.ErrRequestExpired
	}

	req.Status = model.StatusCancelled
	req.ResolvedAt = &now
	if operatorID != "" || reason != "" {
		req.Approvals = append(req.Approvals, model.ApprovalDecision{
			Approver:  model.PermissionSubject{Type: model.SubjectTypeUser, ID: operatorID},
			Approved:  false,
			Comment:   reason,
			Timestamp: now,
		})
	}

	logger.Info("Approval request cancelled",
		zap.String("requestID", id),
		zap.String("agentID", w.agentID),
		zap.String("operatorID", operatorID))
	return req.Clone(), nil
}

// SweepExpired flips every overdue pending request to expired and returns
// snapshots of the requests it flipped.
func (w *ApprovalWorkflow) SweepExpired(now time.Time) []model.ApprovalRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	var flipped []model.ApprovalRequest
	for _, req := range w.requests {
		if w.correctExpiredLocked(req, now) {
			flipped = append(flipped, *req.Clone())
		}
	}
	return flipped
}

// adopt moves every request of the old workflow instance into this one.
// Called while replacing an agent's configuration so in-flight requests
// survive the swap instead of being silently orphaned.
func (w *ApprovalWorkflow) adopt(old *ApprovalWorkflow) {
	if old == nil {
		return
	}
	old.mu.Lock()
	defer old.mu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, req := range old.requests {
		w.requests[id] = req
	}
	old.requests = make(map[string]*model.ApprovalRequest)
}

// correctExpiredLocked flips a pending request whose deadline has passed to
// expired. Caller must hold the write lock. Reports whether it flipped.
// Only the sweep calls this: reads present the effective status without
// mutating, so every flip happens exactly once, where the caller can record
// history and publish the expiry event.
func (w *ApprovalWorkflow) correctExpiredLocked(req *model.ApprovalRequest, now time.Time) bool {
	if !requestOverdue(req, now) {
		return false
	}
	req.Status = model.StatusExpired
	resolved := *req.ExpiresAt
	req.ResolvedAt = &resolved
	logger.Debug("Approval request expired",
		zap.String("requestID", req.ID),
		zap.String("agentID", w.agentID))
	return true
}

// requestOverdue reports whether a stored-pending request's deadline has
// passed.
func requestOverdue(req *model.ApprovalRequest, now time.Time) bool {
	return req.Status == model.StatusPending && req.ExpiresAt != nil && now.After(*req.ExpiresAt)
}

// snapshotRequest clones a request and presents its effective status: an
// overdue pending request reads as expired with ResolvedAt set to its
// deadline, even while the stored record waits for the sweep.
func snapshotRequest(req *model.ApprovalRequest, now time.Time) *model.ApprovalRequest {
	c := req.Clone()
	if requestOverdue(req, now) {
		c.Status = model.StatusExpired
		resolved := *req.ExpiresAt
		c.ResolvedAt = &resolved
	}
	return c
}
