// engine/evaluator_test.go
package engine_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentgate/agentgate/engine"
	logger "github.com/agentgate/agentgate/logging"
	"github.com/agentgate/agentgate/model"
)

func TestMain(m *testing.M) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()
	os.Exit(m.Run())
}

func TestRuleEvaluator(t *testing.T) {
	evaluator := engine.NewRuleEvaluator(model.ActionDeny)

	alice := model.PermissionSubject{Type: model.SubjectTypeUser, ID: "alice"}
	adminRole := model.PermissionSubject{Type: model.SubjectTypeRole, ID: "admin"}

	t.Run("SingleAllowRuleMatches", func(t *testing.T) {
		rules := []model.PermissionRule{
			{ID: "r1", ToolName: "deploy", Subjects: []model.PermissionSubject{alice}, Action: model.ActionAllow},
		}
		decision := evaluator.Evaluate("deploy", []model.PermissionSubject{alice}, rules)
		assert.Equal(t, model.ActionAllow, decision)
	})

	t.Run("DenyOverridesAllow", func(t *testing.T) {
		// alice is allowed by name but denied through her admin role; the
		// explicit deny wins.
		rules := []model.PermissionRule{
			{ID: "r1", ToolName: "deploy", Subjects: []model.PermissionSubject{adminRole}, Action: model.ActionDeny},
			{ID: "r2", ToolName: "deploy", Subjects: []model.PermissionSubject{alice}, Action: model.ActionAllow},
		}
		subjects := []model.PermissionSubject{alice, adminRole}
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("deploy", subjects, rules))

		// Same outcome with the rules declared in the opposite order.
		reversed := []model.PermissionRule{rules[1], rules[0]}
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("deploy", subjects, reversed))
	})

	t.Run("RequireApprovalOverridesAllow", func(t *testing.T) {
		rules := []model.PermissionRule{
			{ID: "r1", ToolName: "deploy", Subjects: []model.PermissionSubject{alice}, Action: model.ActionAllow},
			{ID: "r2", ToolName: "deploy", Subjects: []model.PermissionSubject{adminRole}, Action: model.ActionRequireApproval},
		}
		subjects := []model.PermissionSubject{alice, adminRole}
		assert.Equal(t, model.ActionRequireApproval, evaluator.Evaluate("deploy", subjects, rules))
	})

	t.Run("DenyOverridesRequireApproval", func(t *testing.T) {
		rules := []model.PermissionRule{
			{ID: "r1", ToolName: "deploy", Subjects: []model.PermissionSubject{alice}, Action: model.ActionRequireApproval},
			{ID: "r2", ToolName: "deploy", Subjects: []model.PermissionSubject{alice}, Action: model.ActionDeny},
		}
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("deploy", []model.PermissionSubject{alice}, rules))
	})

	t.Run("NoMatchAppliesDefaultDeny", func(t *testing.T) {
		rules := []model.PermissionRule{
			{ID: "r1", ToolName: "deploy", Subjects: []model.PermissionSubject{adminRole}, Action: model.ActionAllow},
		}
		// toolName mismatch
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("delete", []model.PermissionSubject{adminRole}, rules))
		// subject mismatch
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("deploy", []model.PermissionSubject{alice}, rules))
		// no rules at all
		assert.Equal(t, model.ActionDeny, evaluator.Evaluate("deploy", []model.PermissionSubject{alice}, nil))
	})

	t.Run("NoMatchAppliesDefaultAllow", func(t *testing.T) {
		permissive := engine.NewRuleEvaluator(model.ActionAllow)
		assert.Equal(t, model.ActionAllow, permissive.Evaluate("deploy", []model.PermissionSubject{alice}, nil))
	})

	t.Run("DefaultNeverRequireApproval", func(t *testing.T) {
		// Only allow is accepted as a permissive default; anything else is
		// coerced to deny.
		coerced := engine.NewRuleEvaluator(model.ActionRequireApproval)
		assert.Equal(t, model.ActionDeny, coerced.Evaluate("deploy", []model.PermissionSubject{alice}, nil))
	})
}
