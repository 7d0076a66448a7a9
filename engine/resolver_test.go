// engine/resolver_test.go
package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentgate/agentgate/engine"
	"github.com/agentgate/agentgate/model"
)

func TestSubjectResolver(t *testing.T) {
	resolver := engine.NewSubjectResolver()

	roles := []model.Role{
		{ID: "admin", Name: "Admin", Members: []string{"alice", "bob"}},
		{ID: "viewer", Name: "Viewer", Members: []string{"carol"}},
	}
	groups := []model.Group{
		{ID: "platform", Name: "Platform", Members: []string{"alice"}},
		{ID: "support", Name: "Support", Members: []string{"carol"}},
	}

	t.Run("CallerAlwaysIncluded", func(t *testing.T) {
		subjects := resolver.Resolve("dave", roles, groups)
		assert.Equal(t, []model.PermissionSubject{{Type: model.SubjectTypeUser, ID: "dave"}}, subjects)
	})

	t.Run("ExpandsGroupAndRoleMembership", func(t *testing.T) {
		subjects := resolver.Resolve("alice", roles, groups)
		assert.ElementsMatch(t, []model.PermissionSubject{
			{Type: model.SubjectTypeUser, ID: "alice"},
			{Type: model.SubjectTypeGroup, ID: "platform"},
			{Type: model.SubjectTypeRole, ID: "admin"},
		}, subjects)
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		reversedRoles := []model.Role{roles[1], roles[0]}
		reversedGroups := []model.Group{groups[1], groups[0]}
		assert.ElementsMatch(t,
			resolver.Resolve("alice", roles, groups),
			resolver.Resolve("alice", reversedRoles, reversedGroups))
	})

	t.Run("Idempotent", func(t *testing.T) {
		first := resolver.Resolve("carol", roles, groups)
		second := resolver.Resolve("carol", roles, groups)
		assert.Equal(t, first, second)
	})

	t.Run("NoDefinitions", func(t *testing.T) {
		subjects := resolver.Resolve("alice", nil, nil)
		assert.Len(t, subjects, 1)
		assert.Equal(t, model.SubjectTypeUser, subjects[0].Type)
	})
}
