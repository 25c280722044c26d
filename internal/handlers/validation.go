package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
	appValidator "github.com/charlesng35/estatehub/pkg/validator"
)

// bindJSON decodes the body into dest. Field rules are left to the service,
// which normalises input before validating it.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewValidation("invalid JSON payload"))
		return false
	}
	return true
}

// bindAndValidate decodes the body and applies its validate tags, for request
// shapes that never reach a service unchanged.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if !bindJSON(c, dest) {
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewValidation(err.Error()))
		return false
	}
	return true
}

// parseIntQuery reads a positive integer query parameter.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
