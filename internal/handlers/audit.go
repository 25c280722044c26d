package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/security"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := pagination(c)
	since, ok := timeQuery(c, "since")
	if !ok {
		return
	}
	until, ok := timeQuery(c, "until")
	if !ok {
		return
	}
	filters := services.AuditFilters{
		UserID:         c.Query("user_id"),
		OrganizationID: c.Query("organization_id"),
		Action:         c.Query("action"),
		Result:         c.Query("result"),
		Resource:       c.Query("resource"),
		Since:          since,
		Until:          until,
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{
		Page:     page.Page,
		PageSize: page.PerPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page.Page, page.PerPage, total))
}

type SecurityHandler struct {
	posture *security.PostureService
}

func NewSecurityHandler(posture *security.PostureService) *SecurityHandler {
	return &SecurityHandler{posture: posture}
}

// GET /api/security/posture
func (h *SecurityHandler) Posture(c *gin.Context) {
	response.Success(c, http.StatusOK, h.posture.Run(requestContext(c)))
}

// timeQuery parses an optional RFC3339 query parameter, rendering a 400 when malformed.
func timeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, errors.NewValidation(key+" must be an RFC3339 timestamp"))
		return nil, false
	}
	return &t, true
}
