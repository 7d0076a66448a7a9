// model/subject.go
package model

// SubjectType classifies a permission subject.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "user"
	SubjectTypeGroup SubjectType = "group"
	SubjectTypeRole  SubjectType = "role"
)

// PermissionSubject identifies a principal or principal-class a rule applies to.
// It is an immutable value; two subjects are equal when both fields are equal.
type PermissionSubject struct {
	Type SubjectType `json:"type"` // "user", "group" or "role"
	ID   string      `json:"id"`
}

// Valid reports whether the subject has a known type and a non-empty id.
func (s PermissionSubject) Valid() bool {
	switch s.Type {
	case SubjectTypeUser, SubjectTypeGroup, SubjectTypeRole:
		return s.ID != ""
	}
	return false
}
