// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	AgentID       string          `json:"agent_id"`
	ActorID       string          `json:"actor_id"`
	Action        string          `json:"action"` // e.g. "config.update", "approval.approve"
	RequestID     string          `json:"request_id,omitempty"`
	Outcome       string          `json:"outcome"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
