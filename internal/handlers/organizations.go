package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

// OrganizationHandler covers organizations, their members and invitations.
type OrganizationHandler struct {
	orgs        *services.OrganizationService
	invitations *services.InvitationService
}

func NewOrganizationHandler(orgs *services.OrganizationService, invitations *services.InvitationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, invitations: invitations}
}

// GET /api/orgs
func (h *OrganizationHandler) List(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	memberships, err := h.orgs.ListForUser(requestContext(c), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberships)
}

// GET /api/admin/orgs
func (h *OrganizationHandler) ListAll(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	page, err := h.orgs.ListAll(requestContext(c), c.Query("q"), pagination(c), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page)
}

// POST /api/orgs
func (h *OrganizationHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.CreateOrganizationInput
	if !bindJSON(c, &body) {
		return
	}
	org, err := h.orgs.Create(requestContext(c), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, org)
}

// GET /api/orgs/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	org, err := h.orgs.Get(requestContext(c), c.Param("id"), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// PATCH /api/orgs/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.UpdateOrganizationInput
	if !bindJSON(c, &body) {
		return
	}
	org, err := h.orgs.Update(requestContext(c), c.Param("id"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

// DELETE /api/orgs/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.orgs.Delete(requestContext(c), c.Param("id"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/orgs/:id/members
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	members, err := h.orgs.ListMembers(requestContext(c), c.Param("id"), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

type updateMemberRoleRequest struct {
	Role models.OrgRole `json:"role" validate:"required,oneof=owner admin member viewer"`
}

// PATCH /api/orgs/:id/members/:userID
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body updateMemberRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	member, err := h.orgs.UpdateMemberRole(requestContext(c), c.Param("id"), c.Param("userID"), body.Role, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// DELETE /api/orgs/:id/members/:userID
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.orgs.RemoveMember(requestContext(c), c.Param("id"), c.Param("userID"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// POST /api/orgs/:id/leave
func (h *OrganizationHandler) Leave(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.orgs.Leave(requestContext(c), c.Param("id"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"left": true})
}

// POST /api/orgs/:id/invitations
func (h *OrganizationHandler) Invite(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.InviteMemberInput
	if !bindJSON(c, &body) {
		return
	}
	issued, err := h.invitations.Invite(requestContext(c), c.Param("id"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, issued)
}

// GET /api/orgs/:id/invitations
func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	pending, err := h.invitations.ListPending(requestContext(c), c.Param("id"), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pending)
}

// DELETE /api/orgs/:id/invitations/:invitationID
func (h *OrganizationHandler) RevokeInvitation(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.invitations.Revoke(requestContext(c), c.Param("id"), c.Param("invitationID"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

type acceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/invitations/accept
func (h *OrganizationHandler) AcceptInvitation(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body acceptInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}
	member, err := h.invitations.Accept(requestContext(c), body.Token, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}
