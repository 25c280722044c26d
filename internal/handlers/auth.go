package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/estatehub/internal/auth"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/metrics"
	"github.com/charlesng35/estatehub/pkg/response"
)

// PermissionLister resolves the platform permissions of a user.
type PermissionLister interface {
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
}

// AuthHandler issues access tokens and describes the caller.
type AuthHandler struct {
	users       *services.UserService
	orgs        *services.OrganizationService
	jwt         *iauth.JWTService
	permissions PermissionLister
	openSignup  bool
}

func NewAuthHandler(users *services.UserService, orgs *services.OrganizationService, jwt *iauth.JWTService, permissions PermissionLister, openSignup bool) *AuthHandler {
	return &AuthHandler{users: users, orgs: orgs, jwt: jwt, permissions: permissions, openSignup: openSignup}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type sessionPayload struct {
	iauth.IssuedToken
	User        *models.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login_failure").Inc()
		response.Error(c, err)
		return
	}
	metrics.AuthAttempts.WithLabelValues("login_success").Inc()
	h.respondWithToken(c, http.StatusOK, user)
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	if !h.openSignup {
		response.Error(c, errors.NewForbidden("Registration is disabled"))
		return
	}
	var body services.RegisterUserInput
	if !bindJSON(c, &body) {
		return
	}
	user, err := h.users.Register(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.Issue(user.ID, user.Email)
	if err != nil {
		response.Error(c, errors.NewInternal("Failed to issue access token", err))
		return
	}
	perms, err := h.permissions.GetUserPermissions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status, sessionPayload{IssuedToken: token, User: user, Permissions: perms})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	ctx := requestContext(c)
	user, err := h.users.GetByID(ctx, auth.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	perms, err := h.permissions.GetUserPermissions(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	memberships, err := h.orgs.ListForUser(ctx, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":          user,
		"permissions":   perms,
		"organizations": memberships,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body changePasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if err := h.users.ChangePassword(requestContext(c), body.CurrentPassword, body.NewPassword, auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": true})
}
