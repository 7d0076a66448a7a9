// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/agentgate/agentgate/logging"
)

// Error codes of the boundary contract.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnavailable    = "UNAVAILABLE"
)

// APIError is the error body every endpoint returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError writes the {code, message} error shape and logs the cause.
func RespondWithError(c *gin.Context, httpStatus int, code, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("code", code),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(httpStatus, APIError{Code: code, Message: message})
}

// GetOperatorIDFromContext returns the verified operator identity placed on
// the request context by the boundary layer, if any.
func GetOperatorIDFromContext(c *gin.Context) string {
	operatorID, exists := c.Get("operatorID")
	if !exists {
		return ""
	}
	id, _ := operatorID.(string)
	return id
}
