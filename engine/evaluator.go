// engine/evaluator.go
package engine

import (
	"go.uber.org/zap"

	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

// RuleEvaluator computes the effective decision for a tool invocation. Among
// matching rules the most restrictive action wins regardless of rule order:
// deny > require_approval > allow. When no rule matches, the configured
// default applies (deny unless explicitly configured otherwise).
type RuleEvaluator struct {
	defaultAction model.RuleAction
}

func NewRuleEvaluator(defaultAction model.RuleAction) *RuleEvaluator {
	if defaultAction != model.ActionAllow {
		defaultAction = model.ActionDeny
	}
	return &RuleEvaluator{defaultAction: defaultAction}
}

// Evaluate scans the rule list for rules whose tool name matches toolName and
// whose subject list intersects the resolved subject set, then combines the
// matching actions under deny-overrides precedence.
func (re *RuleEvaluator) Evaluate(toolName string, subjects []model.PermissionSubject, rules []model.PermissionRule) model.RuleAction {
	matched := false
	needsApproval := false

	for _, rule := range rules {
		if rule.ToolName != toolName {
			continue
		}
		if !subjectsIntersect(rule.Subjects, subjects) {
			continue
		}
		matched = true
		switch rule.Action {
		case model.ActionDeny:
			// Nothing outranks an explicit deny.
			return model.ActionDeny
		case model.ActionRequireApproval:
			needsApproval = true
		}
	}

	if !matched {
		logger.Debug("No rule matched tool invocation, applying default action",
			zap.String("toolName", toolName),
			zap.String("defaultAction", string(re.defaultAction)))
		return re.defaultAction
	}
	if needsApproval {
		return model.ActionRequireApproval
	}
	return model.ActionAllow
}

func subjectsIntersect(a, b []model.PermissionSubject) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Type == y.Type && x.ID == y.ID {
				return true
			}
		}
	}
	return false
}
