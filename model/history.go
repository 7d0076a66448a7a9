// model/history.go
package model

import "time"

// ChangeKind labels an entry in the per-agent change history.
type ChangeKind string

const (
	ChangeConfigUpdated    ChangeKind = "config_updated"
	ChangeRequestCreated   ChangeKind = "request_created"
	ChangeRequestApproved  ChangeKind = "request_approved"
	ChangeRequestRejected  ChangeKind = "request_rejected"
	ChangeRequestExpired   ChangeKind = "request_expired"
	ChangeRequestCancelled ChangeKind = "request_cancelled"
)

// ChangeRecord is one immutable entry in an agent's change history. Entries
// are appended on every config mutation and every terminal decision and are
// never deleted, only capped by a read limit.
type ChangeRecord struct {
	Timestamp time.Time  `json:"timestamp"`
	AgentID   string     `json:"agent_id"`
	Kind      ChangeKind `json:"kind"`
	Actor     string     `json:"actor,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}
