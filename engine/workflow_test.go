// engine/workflow_test.go
package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/engine"
	gate_errors "github.com/agentgate/agentgate/errors"
	"github.com/agentgate/agentgate/model"
)

func newTestRequest(t *testing.T, wf *engine.ApprovalWorkflow, expiresAt *time.Time) *model.ApprovalRequest {
	t.Helper()
	req := wf.CreateRequest(engine.CreateRequestInput{
		Title:           "Approval required: deploy",
		RequestedAction: "deploy",
		Requester:       model.Requester{Type: model.RequesterTypeUser, ID: "alice"},
		Priority:        model.PriorityNormal,
		ExpiresAt:       expiresAt,
	})
	require.NotEmpty(t, req.ID)
	require.Equal(t, model.StatusPending, req.Status)
	return req
}

func approveAction(requestID string) model.ApprovalAction {
	return model.ApprovalAction{
		RequestID: requestID,
		Approver:  model.PermissionSubject{Type: model.SubjectTypeUser, ID: "bob"},
		Approved:  true,
		Timestamp: time.Now(),
	}
}

func TestApprovalWorkflow(t *testing.T) {
	t.Run("CreateAndGetSnapshot", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		// Mutating the snapshot must not leak into the stored request.
		req.Status = model.StatusApproved
		stored := wf.Get(req.ID)
		require.NotNil(t, stored)
		assert.Equal(t, model.StatusPending, stored.Status)
	})

	t.Run("ApproveSetsResolvedAtAndDecision", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		resolved, err := wf.ProcessAction(approveAction(req.ID))
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)
		require.Len(t, resolved.Approvals, 1)
		assert.Equal(t, "bob", resolved.Approvals[0].Approver.ID)
		assert.True(t, resolved.Approvals[0].Approved)
	})

	t.Run("RejectKeepsComment", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		action := approveAction(req.ID)
		action.Approved = false
		action.Comment = "not during the release freeze"
		resolved, err := wf.ProcessAction(action)
		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, resolved.Status)
		assert.Equal(t, "not during the release freeze", resolved.Approvals[0].Comment)
	})

	t.Run("SecondDecisionRejected", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		_, err := wf.ProcessAction(approveAction(req.ID))
		require.NoError(t, err)

		_, err = wf.ProcessAction(approveAction(req.ID))
		assert.ErrorIs(t, err, gate_errors.ErrRequestAlreadyResolved)
	})

	t.Run("ConcurrentDecisionsExactlyOneWins", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		const attempts = 16
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = wf.ProcessAction(approveAction(req.ID))
			}(i)
		}
		wg.Wait()

		var wins int
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, gate_errors.ErrRequestAlreadyResolved)
			}
		}
		assert.Equal(t, 1, wins)
		require.Len(t, wf.Get(req.ID).Approvals, 1)
	})

	t.Run("UnknownRequestNotFound", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		_, err := wf.ProcessAction(approveAction("missing"))
		assert.ErrorIs(t, err, gate_errors.ErrRequestNotFound)
	})

	t.Run("OverdueDecisionRejected", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		past := time.Now().Add(-time.Minute)
		req := newTestRequest(t, wf, &past)

		_, err := wf.ProcessAction(approveAction(req.ID))
		assert.ErrorIs(t, err, gate_errors.ErrRequestExpired)

		// Snapshots already read as expired, with the deadline as the
		// resolution time.
		stored := wf.Get(req.ID)
		assert.Equal(t, model.StatusExpired, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
		assert.Equal(t, past.Unix(), stored.ResolvedAt.Unix())
	})

	t.Run("OverdueCancelRejected", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		past := time.Now().Add(-time.Minute)
		req := newTestRequest(t, wf, &past)

		_, err := wf.Cancel(req.ID, "ops", "too late")
		assert.ErrorIs(t, err, gate_errors.ErrRequestExpired)
	})

	t.Run("PendingListingsSkipExpired", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		past := time.Now().Add(-time.Minute)
		future := time.Now().Add(time.Hour)
		newTestRequest(t, wf, &past)
		live := newTestRequest(t, wf, &future)

		pending := wf.PendingRequests(model.ApprovalFilter{}, time.Now())
		require.Len(t, pending, 1)
		assert.Equal(t, live.ID, pending[0].ID)
	})

	t.Run("CancelPending", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)

		cancelled, err := wf.Cancel(req.ID, "ops", "superseded")
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)

		_, err = wf.Cancel(req.ID, "ops", "again")
		assert.ErrorIs(t, err, gate_errors.ErrRequestAlreadyResolved)
	})

	t.Run("CancelResolvedRejected", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		req := newTestRequest(t, wf, nil)
		_, err := wf.ProcessAction(approveAction(req.ID))
		require.NoError(t, err)

		_, err = wf.Cancel(req.ID, "ops", "too late")
		assert.ErrorIs(t, err, gate_errors.ErrRequestAlreadyResolved)
	})

	t.Run("SweepExpiredFlipsOnlyOverdue", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		past := time.Now().Add(-time.Minute)
		future := time.Now().Add(time.Hour)
		overdue := newTestRequest(t, wf, &past)
		newTestRequest(t, wf, &future)
		newTestRequest(t, wf, nil)

		flipped := wf.SweepExpired(time.Now())
		require.Len(t, flipped, 1)
		assert.Equal(t, overdue.ID, flipped[0].ID)
		assert.Equal(t, model.StatusExpired, flipped[0].Status)

		// A second sweep finds nothing left to flip.
		assert.Empty(t, wf.SweepExpired(time.Now()))
	})

	t.Run("ReadsNeverConsumeSweepFlips", func(t *testing.T) {
		wf := engine.NewApprovalWorkflow("agent-1")
		past := time.Now().Add(-time.Minute)
		overdue := newTestRequest(t, wf, &past)

		// Listings and decisions observe the request as expired first...
		all := wf.Requests(time.Now())
		require.Len(t, all, 1)
		assert.Equal(t, model.StatusExpired, all[0].Status)
		assert.Empty(t, wf.PendingRequests(model.ApprovalFilter{}, time.Now()))
		_, err := wf.ProcessAction(approveAction(overdue.ID))
		assert.ErrorIs(t, err, gate_errors.ErrRequestExpired)

		// ...and the sweep still sees and reports the flip afterwards.
		flipped := wf.SweepExpired(time.Now())
		require.Len(t, flipped, 1)
		assert.Equal(t, overdue.ID, flipped[0].ID)
	})
}
