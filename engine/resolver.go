// engine/resolver.go
package engine

import (
	"github.com/agentgate/agentgate/model"
)

// SubjectResolver expands a caller identity into the set of subject
// descriptors it matches. Resolution is exactly one level deep: the caller
// itself, every group listing the caller as a member, and every role listing
// the caller as a member. Groups and roles do not nest.
type SubjectResolver struct{}

func NewSubjectResolver() *SubjectResolver {
	return &SubjectResolver{}
}

// Resolve returns the subject set for callerID under the given role and group
// definitions. The result does not depend on declaration order and resolving
// twice yields the same set.
func (sr *SubjectResolver) Resolve(callerID string, roles []model.Role, groups []model.Group) []model.PermissionSubject {
	subjects := []model.PermissionSubject{
		{Type: model.SubjectTypeUser, ID: callerID},
	}
	for _, g := range groups {
		if containsMember(g.Members, callerID) {
			subjects = append(subjects, model.PermissionSubject{Type: model.SubjectTypeGroup, ID: g.ID})
		}
	}
	for _, r := range roles {
		if containsMember(r.Members, callerID) {
			subjects = append(subjects, model.PermissionSubject{Type: model.SubjectTypeRole, ID: r.ID})
		}
	}
	return subjects
}

func containsMember(members []string, id string) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}
