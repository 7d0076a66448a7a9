// model/evaluation.go
package model

// ToolInvocation describes one attempted tool call to be evaluated. The
// caller identity is a verified token handed in by the boundary layer.
type ToolInvocation struct {
	AgentID    string           `json:"agent_id"`
	CallerID   string           `json:"caller_id"`
	CallerName string           `json:"caller_name,omitempty"`
	CallerType RequesterType    `json:"caller_type,omitempty"`
	ToolName   string           `json:"tool_name"`
	TargetID   string           `json:"target_id,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Priority   ApprovalPriority `json:"priority,omitempty"`
}

// EvaluationResult is the outcome of evaluating a tool invocation. Request is
// populated only when the decision is require_approval: the caller holds the
// pending handle and waits for a human decision.
type EvaluationResult struct {
	Decision RuleAction       `json:"decision"`
	Request  *ApprovalRequest `json:"request,omitempty"`
}
