// util/validation_util.go

package util

import (
	"fmt"

	"github.com/agentgate/agentgate/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidateAgentConfig checks an entire permission configuration before any of
// it is stored. Any violation fails the whole update; there is no partial
// acceptance.
func (v *ValidationUtil) ValidateAgentConfig(config *model.AgentPermissionsConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.Rules == nil {
		return fmt.Errorf("config rules must be an array")
	}
	seen := make(map[string]bool, len(config.Rules))
	for i, rule := range config.Rules {
		if err := v.ValidateRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[rule.ID] {
			return fmt.Errorf("rule %d: duplicate rule id %q", i, rule.ID)
		}
		seen[rule.ID] = true
	}
	for i, role := range config.Roles {
		if err := v.ValidateRole(role); err != nil {
			return fmt.Errorf("role %d: %w", i, err)
		}
	}
	for i, group := range config.Groups {
		if err := v.ValidateGroup(group); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
	}
	if config.ApprovalConfig != nil {
		for i, approver := range config.ApprovalConfig.Approvers {
			if err := v.ValidateSubject(approver); err != nil {
				return fmt.Errorf("approval config approver %d: %w", i, err)
			}
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateRule(rule model.PermissionRule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if rule.ToolName == "" {
		return fmt.Errorf("rule tool name cannot be empty")
	}
	if len(rule.Subjects) == 0 {
		return fmt.Errorf("rule must have at least one subject")
	}
	for i, subject := range rule.Subjects {
		if err := v.ValidateSubject(subject); err != nil {
			return fmt.Errorf("subject %d: %w", i, err)
		}
	}
	if !rule.Action.Valid() {
		return fmt.Errorf("rule action must be one of 'allow', 'deny' or 'require_approval'")
	}
	return nil
}

func (v *ValidationUtil) ValidateRole(role model.Role) error {
	if role.ID == "" {
		return fmt.Errorf("role id cannot be empty")
	}
	if role.Name == "" {
		return fmt.Errorf("role name cannot be empty")
	}
	if role.Members == nil {
		return fmt.Errorf("role members must be an array")
	}
	if role.Permissions == nil {
		return fmt.Errorf("role permissions must be an array")
	}
	return nil
}

func (v *ValidationUtil) ValidateGroup(group model.Group) error {
	if group.ID == "" {
		return fmt.Errorf("group id cannot be empty")
	}
	if group.Name == "" {
		return fmt.Errorf("group name cannot be empty")
	}
	if group.Members == nil {
		return fmt.Errorf("group members must be an array")
	}
	return nil
}

func (v *ValidationUtil) ValidateSubject(subject model.PermissionSubject) error {
	switch subject.Type {
	case model.SubjectTypeUser, model.SubjectTypeGroup, model.SubjectTypeRole:
	default:
		return fmt.Errorf("subject type must be 'user', 'group' or 'role'")
	}
	if subject.ID == "" {
		return fmt.Errorf("subject id cannot be empty")
	}
	return nil
}

// ValidateAction checks a decision before it touches any workflow state.
func (v *ValidationUtil) ValidateAction(action model.ApprovalAction) error {
	if action.RequestID == "" {
		return fmt.Errorf("request id cannot be empty")
	}
	if err := v.ValidateSubject(action.Approver); err != nil {
		return fmt.Errorf("approver: %w", err)
	}
	return nil
}
