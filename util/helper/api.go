package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLimitParam parses the optional "limit" query parameter, falling back to
// the supplied default. A limit of zero means unlimited.
func GetLimitParam(c *gin.Context, defaultLimit int) (int, error) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil {
		return 0, err
	}
	if limit < 0 {
		limit = 0
	}
	return limit, nil
}
