package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// callerAuth returns the authenticated caller or writes a 401 and returns false.
func callerAuth(c *gin.Context) (services.AuthContext, bool) {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		response.Error(c, errors.NewUnauthorized(services.MsgAuthRequired))
		return services.AuthContext{}, false
	}
	return auth, true
}

func pagination(c *gin.Context) repository.Pagination {
	return repository.Pagination{
		Page:    parseIntQuery(c, "page", 1),
		PerPage: parseIntQuery(c, "per_page", repository.DefaultPerPage),
	}.Normalize()
}

func respondPage[T any](c *gin.Context, page services.Page[T]) {
	response.SuccessWithMeta(c, http.StatusOK, page.Items, response.NewMeta(page.Page, page.PerPage, page.Total))
}
