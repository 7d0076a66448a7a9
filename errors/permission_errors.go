// errors/permission_errors.go
package errors

import "errors"

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrInvalidConfig      = errors.New("invalid permission configuration")
	ErrPersistenceFailure = errors.New("configuration persistence failed")
	ErrDatabaseOperation  = errors.New("database operation failed")
	ErrInternalServer     = errors.New("internal server error")
)
