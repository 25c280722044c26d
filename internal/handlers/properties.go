package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
)

// PropertyHandler exposes the property service. Every failure is rendered from
// the service Result.
type PropertyHandler struct {
	svc *services.PropertyService
}

func NewPropertyHandler(svc *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{svc: svc}
}

// POST /api/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.CreatePropertyInput
	if !bindJSON(c, &body) {
		return
	}
	if body.OrganizationID == nil {
		if orgID := middleware.ActiveOrganization(c); orgID != "" {
			body.OrganizationID = &orgID
		}
	}

	res := h.svc.CreateProperty(requestContext(c), body, auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusCreated, res.Data)
}

// GET /api/properties
func (h *PropertyHandler) List(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	minPrice, ok := floatQuery(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := floatQuery(c, "max_price")
	if !ok {
		return
	}
	filters := services.PropertyFilters{
		OrganizationID: middleware.ActiveOrganization(c),
		Status:         models.PropertyStatus(c.Query("status")),
		ListingType:    models.ListingType(c.Query("listing_type")),
		PropertyType:   c.Query("property_type"),
		City:           c.Query("city"),
		MinPrice:       minPrice,
		MaxPrice:       maxPrice,
		Search:         strings.TrimSpace(c.Query("q")),
	}

	res := h.svc.GetUserProperties(requestContext(c), filters, pagination(c), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	respondPage(c, res.Data)
}

// GET /api/properties/:id
func (h *PropertyHandler) Get(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	res := h.svc.GetProperty(requestContext(c), c.Param("id"), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusOK, res.Data)
}

// PATCH /api/properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.UpdatePropertyInput
	if !bindJSON(c, &body) {
		return
	}
	res := h.svc.UpdateProperty(requestContext(c), c.Param("id"), body, auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusOK, res.Data)
}

// DELETE /api/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	res := h.svc.DeleteProperty(requestContext(c), c.Param("id"), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "id": res.Data})
}

// POST /api/properties/:id/images
func (h *PropertyHandler) AddImage(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.AddImageInput
	if !bindJSON(c, &body) {
		return
	}
	res := h.svc.AddPropertyImage(requestContext(c), c.Param("id"), body, auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusCreated, res.Data)
}

// DELETE /api/properties/:id/images/:imageID
func (h *PropertyHandler) RemoveImage(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	res := h.svc.RemovePropertyImage(requestContext(c), c.Param("id"), c.Param("imageID"), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusOK, res.Data)
}

type addAmenityRequest struct {
	AmenityID string `json:"amenity_id" validate:"required"`
}

// POST /api/properties/:id/amenities
func (h *PropertyHandler) AddAmenity(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body addAmenityRequest
	if !bindAndValidate(c, &body) {
		return
	}
	res := h.svc.AddPropertyAmenity(requestContext(c), c.Param("id"), strings.TrimSpace(body.AmenityID), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusCreated, res.Data)
}

// DELETE /api/properties/:id/amenities/:amenityID
func (h *PropertyHandler) RemoveAmenity(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	res := h.svc.RemovePropertyAmenity(requestContext(c), c.Param("id"), c.Param("amenityID"), auth)
	if !res.Success {
		response.Error(c, res.Err())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// floatQuery parses an optional numeric query parameter, rendering a 400 when malformed.
func floatQuery(c *gin.Context, key string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		response.Error(c, errors.NewValidation(key+" must be a number"))
		return nil, false
	}
	return &v, true
}
