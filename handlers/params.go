package handlers

import (
	"strconv"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/gin-gonic/gin"
)

func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}

// int64Param parses a positive numeric path parameter.
func int64Param(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.ValidationFailed("invalid "+name, "expected a positive integer, got "+strconv.Quote(raw)))
		return 0, false
	}
	return id, true
}
