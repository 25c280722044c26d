package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

type AmenityHandler struct {
	svc *services.AmenityService
}

func NewAmenityHandler(svc *services.AmenityService) *AmenityHandler {
	return &AmenityHandler{svc: svc}
}

// GET /api/amenities
func (h *AmenityHandler) List(c *gin.Context) {
	amenities, err := h.svc.List(requestContext(c), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, amenities)
}

// POST /api/amenities
func (h *AmenityHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.AmenityInput
	if !bindJSON(c, &body) {
		return
	}
	amenity, err := h.svc.Create(requestContext(c), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, amenity)
}

// PATCH /api/amenities/:id
func (h *AmenityHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.AmenityInput
	if !bindJSON(c, &body) {
		return
	}
	amenity, err := h.svc.Update(requestContext(c), c.Param("id"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, amenity)
}

// DELETE /api/amenities/:id
func (h *AmenityHandler) Delete(c *gin.Context) {
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
