// errors/approval_errors.go
package errors

import "errors"

var (
	ErrRequestNotFound        = errors.New("approval request not found")
	ErrRequestAlreadyResolved = errors.New("approval request already resolved")
	ErrRequestExpired         = errors.New("approval request expired")
	ErrInvalidSubject         = errors.New("invalid subject")
	ErrInvalidDecision        = errors.New("invalid decision")
	ErrCommentRequired        = errors.New("comment is required when denying")
	ErrEmptyBatch             = errors.New("batch contains no request ids")
)
