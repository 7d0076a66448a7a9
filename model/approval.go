// model/approval.go
package model

import (
	"strings"
	"time"
)

// ApprovalStatus is the lifecycle state of an approval request. Every state
// other than pending is terminal.
type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusApproved  ApprovalStatus = "approved"
	StatusRejected  ApprovalStatus = "rejected"
	StatusExpired   ApprovalStatus = "expired"
	StatusCancelled ApprovalStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	return s != StatusPending && s != ""
}

// ApprovalPriority orders requests for filtering and statistics only; it never
// changes the decision algorithm.
type ApprovalPriority string

const (
	PriorityLow       ApprovalPriority = "low"
	PriorityNormal    ApprovalPriority = "normal"
	PriorityHigh      ApprovalPriority = "high"
	PriorityUrgent    ApprovalPriority = "urgent"
	PriorityEmergency ApprovalPriority = "emergency"
)

// Valid reports whether the priority is one of the defined levels.
func (p ApprovalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

// High reports whether the priority counts toward the high-priority statistic.
func (p ApprovalPriority) High() bool {
	return p == PriorityHigh || p == PriorityUrgent || p == PriorityEmergency
}

// RequesterType classifies who asked for the gated tool invocation.
type RequesterType string

const (
	RequesterTypeUser  RequesterType = "user"
	RequesterTypeAgent RequesterType = "agent"
)

// Requester identifies the principal on whose behalf a request was raised.
type Requester struct {
	Type RequesterType `json:"type"`
	ID   string        `json:"id"`
	Name string        `json:"name,omitempty"`
}

// ApprovalDecision is one entry in a request's decision trail. The trail is
// append-only; once the request is terminal the last entry is authoritative.
type ApprovalDecision struct {
	Approver  PermissionSubject `json:"approver"`
	Approved  bool              `json:"approved"`
	Comment   string            `json:"comment,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ApprovalRequest is a stateful record representing a pending human decision
// gating a tool invocation.
type ApprovalRequest struct {
	ID              string             `json:"id"`
	AgentID         string             `json:"agent_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	RequestedAction string             `json:"requested_action"`
	TargetID        string             `json:"target_id,omitempty"`
	Requester       Requester          `json:"requester"`
	Priority        ApprovalPriority   `json:"priority"`
	Status          ApprovalStatus     `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
	Approvals       []ApprovalDecision `json:"approvals"`
}

// EffectiveStatus returns the status a reader should act on: a request that is
// still stored as pending but whose deadline has passed reads as expired even
// before the sweeper flips it.
func (r *ApprovalRequest) EffectiveStatus(now time.Time) ApprovalStatus {
	if r.Status == StatusPending && r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return StatusExpired
	}
	return r.Status
}

// Clone returns a deep copy so snapshots handed to callers are immune to
// concurrent mutation of the stored request.
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	cp := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		cp.ResolvedAt = &t
	}
	cp.Approvals = make([]ApprovalDecision, len(r.Approvals))
	copy(cp.Approvals, r.Approvals)
	return &cp
}

// Matches reports whether the request satisfies a list filter. An empty
// filter matches everything; search is a case-insensitive substring match
// over the descriptive fields.
func (r *ApprovalRequest) Matches(f ApprovalFilter, now time.Time) bool {
	if f.Status != "" && r.EffectiveStatus(now) != f.Status {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.RequesterType != "" && r.Requester.Type != f.RequesterType {
		return false
	}
	if f.AgentID != "" && r.AgentID != f.AgentID {
		return false
	}
	if f.RequesterID != "" && r.Requester.ID != f.RequesterID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(strings.Join([]string{
			r.Title, r.Description, r.Reason, r.RequestedAction, r.TargetID,
		}, "\n"))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// ApprovalFilter narrows request listings. Zero values match everything.
type ApprovalFilter struct {
	Status        ApprovalStatus
	Priority      ApprovalPriority
	RequesterType RequesterType
	AgentID       string
	RequesterID   string
	Search        string
}

// ApprovalAction is one decision applied to a pending request.
type ApprovalAction struct {
	RequestID string            `json:"request_id"`
	Approver  PermissionSubject `json:"approver"`
	Approved  bool              `json:"approved"`
	Comment   string            `json:"comment,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// BatchItemResult reports the outcome of one id inside a batch decision.
type BatchItemResult struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates a batch decision: the caller gets per-item outcomes
// and retries only the failed subset.
type BatchResult struct {
	Results      []BatchItemResult `json:"results"`
	SuccessCount int               `json:"success_count"`
	TotalCount   int               `json:"total_count"`
}

// ApprovalStatistics is the point-in-time aggregate over every request the
// process has ever created. Derived fields depend on wall-clock time and are
// recomputed on every call.
type ApprovalStatistics struct {
	PendingRequests      int           `json:"pending_requests"`
	ApprovedRequests     int           `json:"approved_requests"`
	RejectedRequests     int           `json:"rejected_requests"`
	ExpiredRequests      int           `json:"expired_requests"`
	CancelledRequests    int           `json:"cancelled_requests"`
	TotalRequests        int           `json:"total_requests"`
	AverageApprovalTime  time.Duration `json:"average_approval_time"`
	HighPriorityCount    int           `json:"high_priority_count"`
	ExpiringWithin1Hour  int           `json:"expiring_within_1_hour"`
}
