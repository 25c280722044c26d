package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

type DeveloperHandler struct {
	svc *services.DeveloperService
}

func NewDeveloperHandler(svc *services.DeveloperService) *DeveloperHandler {
	return &DeveloperHandler{svc: svc}
}

// GET /api/developers
func (h *DeveloperHandler) List(c *gin.Context) {
	page, err := h.svc.List(requestContext(c), c.Query("organization_id"), c.Query("q"), pagination(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page)
}

// GET /api/developers/:id accepts an ID or a slug.
func (h *DeveloperHandler) Get(c *gin.Context) {
	developer, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, developer)
}

// POST /api/developers
func (h *DeveloperHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.DeveloperInput
	if !bindJSON(c, &body) {
		return
	}
	developer, err := h.svc.Create(requestContext(c), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, developer)
}

// PATCH /api/developers/:id
func (h *DeveloperHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.DeveloperInput
	if !bindJSON(c, &body) {
		return
	}
	developer, err := h.svc.Update(requestContext(c), c.Param("id"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, developer)
}

// DELETE /api/developers/:id
func (h *DeveloperHandler) Delete(c *gin.Context) {
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
