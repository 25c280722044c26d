package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

type SetupHandler struct {
	svc *services.SetupService
}

func NewSetupHandler(svc *services.SetupService) *SetupHandler {
	return &SetupHandler{svc: svc}
}

// GET /api/setup/status
func (h *SetupHandler) Status(c *gin.Context) {
	initialized, err := h.svc.Initialized(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"initialized": initialized})
}

// POST /api/setup/initialize
func (h *SetupHandler) Initialize(c *gin.Context) {
	var body services.RegisterUserInput
	if !bindJSON(c, &body) {
		return
	}
	user, err := h.svc.Initialize(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"root_user_id": user.ID})
}
