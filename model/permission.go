// model/permission.go
package model

// RuleAction is the effect of a matching permission rule.
type RuleAction string

const (
	ActionAllow           RuleAction = "allow"
	ActionDeny            RuleAction = "deny"
	ActionRequireApproval RuleAction = "require_approval"
)

// Valid reports whether the action is one of the three defined effects.
func (a RuleAction) Valid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionRequireApproval:
		return true
	}
	return false
}

// PermissionRule binds a tool name and a set of subjects to an action.
// Rule ids are unique within an agent; the whole rule list is replaced
// atomically on update.
type PermissionRule struct {
	ID       string              `json:"id"`
	ToolName string              `json:"tool_name"`
	Subjects []PermissionSubject `json:"subjects"`
	Action   RuleAction          `json:"action"`
}

// Role is a named collection of member ids plus the permission names the
// role carries. Membership is a flat string list; roles do not nest.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	Permissions []string `json:"permissions"`
}

// Group is a named flat collection of member ids. Groups do not nest.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// ApprovalConfig names who may decide approval requests that lack a more
// specific approver list.
type ApprovalConfig struct {
	Approvers []PermissionSubject `json:"approvers"`
}

// AgentPermissionsConfig is the full permission configuration for one agent.
// It is owned by the policy store and replaced wholesale on update.
type AgentPermissionsConfig struct {
	Rules          []PermissionRule `json:"rules"`
	Roles          []Role           `json:"roles,omitempty"`
	Groups         []Group          `json:"groups,omitempty"`
	ApprovalConfig *ApprovalConfig  `json:"approval_config,omitempty"`
}
