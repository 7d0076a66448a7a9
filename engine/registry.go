// engine/registry.go
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	gate_errors "github.com/agentgate/agentgate/errors"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

// WorkflowRegistry owns the per-agent workflows behind a concurrency-safe map
// plus a secondary requestID -> agentID index, so a decision carrying only a
// global request id does not have to scan every workflow. Workflows are
// created lazily on first use and replaced wholesale when an agent's
// permission configuration changes; the swap is atomic with respect to every
// other registry operation.
type WorkflowRegistry struct {
	mu        sync.RWMutex
	workflows map[string]*ApprovalWorkflow
	index     map[string]string
}

func NewWorkflowRegistry() *WorkflowRegistry {
	return &WorkflowRegistry{
		workflows: make(map[string]*ApprovalWorkflow),
		index:     make(map[string]string),
	}
}

// WorkflowFor returns the agent's workflow, creating it on first use.
func (reg *WorkflowRegistry) WorkflowFor(agentID string) *ApprovalWorkflow {
	reg.mu.RLock()
	wf, ok := reg.workflows[agentID]
	reg.mu.RUnlock()
	if ok {
		return wf
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if wf, ok := reg.workflows[agentID]; ok {
		return wf
	}
	wf = NewApprovalWorkflow(agentID)
	reg.workflows[agentID] = wf
	return wf
}

// Replace installs a fresh workflow instance for the agent and migrates the
// old instance's requests into it, so a configuration update never orphans
// in-flight pending requests while still guaranteeing that no stale rule
// state leaks into new decisions.
func (reg *WorkflowRegistry) Replace(agentID string) *ApprovalWorkflow {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	fresh := NewApprovalWorkflow(agentID)
	fresh.adopt(reg.workflows[agentID])
	reg.workflows[agentID] = fresh

	logger.Info("Approval workflow replaced", zap.String("agentID", agentID))
	return fresh
}

// CreateRequest creates a request in the agent's workflow and records it in
// the global id index.
func (reg *WorkflowRegistry) CreateRequest(agentID string, in CreateRequestInput) *model.ApprovalRequest {
	wf := reg.WorkflowFor(agentID)
	req := wf.CreateRequest(in)

	reg.mu.Lock()
	reg.index[req.ID] = agentID
	reg.mu.Unlock()
	return req
}

// FindWorkflow locates the workflow owning a request id. The index covers
// every request created through the registry; a miss falls back to scanning
// all workflows before giving up.
func (reg *WorkflowRegistry) FindWorkflow(requestID string) (*ApprovalWorkflow, error) {
	reg.mu.RLock()
	agentID, indexed := reg.index[requestID]
	wf := reg.workflows[agentID]
	reg.mu.RUnlock()
	if indexed && wf != nil {
		return wf, nil
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, candidate := range reg.workflows {
		if candidate.Get(requestID) != nil {
			return candidate, nil
		}
	}
	return nil, gate_errors.ErrRequestNotFound
}

// GetRequest returns a snapshot of the request by its global id.
func (reg *WorkflowRegistry) GetRequest(requestID string) (*model.ApprovalRequest, error) {
	wf, err := reg.FindWorkflow(requestID)
	if err != nil {
		return nil, err
	}
	req := wf.Get(requestID)
	if req == nil {
		return nil, gate_errors.ErrRequestNotFound
	}
	return req, nil
}

// AllRequests returns snapshots of every request across all workflows.
func (reg *WorkflowRegistry) AllRequests(now time.Time) []model.ApprovalRequest {
	reg.mu.RLock()
	workflows := make([]*ApprovalWorkflow, 0, len(reg.workflows))
	for _, wf := range reg.workflows {
		workflows = append(workflows, wf)
	}
	reg.mu.RUnlock()

	var out []model.ApprovalRequest
	for _, wf := range workflows {
		out = append(out, wf.Requests(now)...)
	}
	return out
}

// SweepExpired performs one expiry pass over every workflow and returns the
// requests that were flipped to expired.
func (reg *WorkflowRegistry) SweepExpired(now time.Time) []model.ApprovalRequest {
	reg.mu.RLock()
	workflows := make([]*ApprovalWorkflow, 0, len(reg.workflows))
	for _, wf := range reg.workflows {
		workflows = append(workflows, wf)
	}
	reg.mu.RUnlock()

	var flipped []model.ApprovalRequest
	for _, wf := range workflows {
		flipped = append(flipped, wf.SweepExpired(now)...)
	}
	return flipped
}
