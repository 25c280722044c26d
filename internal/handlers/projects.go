package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

type ProjectHandler struct {
	svc *services.ProjectService
}

func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	filters := services.ProjectFilters{
		OrganizationID: c.Query("organization_id"),
		DeveloperID:    c.Query("developer_id"),
		City:           c.Query("city"),
		Status:         models.ProjectStatus(c.Query("status")),
	}
	page, err := h.svc.List(requestContext(c), filters, pagination(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page)
}

// GET /api/projects/:id accepts an ID or a slug.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.ProjectInput
	if !bindJSON(c, &body) {
		return
	}
	project, err := h.svc.Create(requestContext(c), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.ProjectInput
	if !bindJSON(c, &body) {
		return
	}
	project, err := h.svc.Update(requestContext(c), c.Param("id"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), c.Param("id"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
