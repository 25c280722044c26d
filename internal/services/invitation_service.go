package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/pkg/crypto"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/logger"
	"github.com/charlesng35/estatehub/pkg/mail"
	"github.com/charlesng35/estatehub/pkg/validator"
)

const (
	defaultInvitationExpiry     = 7 * 24 * time.Hour
	defaultInvitationTokenBytes = 32
)

// InviteMemberInput names the invitee and the role they will receive.
type InviteMemberInput struct {
	Email string         `json:"email" validate:"required,email"`
	Role  models.OrgRole `json:"role" validate:"required,oneof=owner admin member viewer"`
}

// IssuedInvitation is a stored invitation plus the raw token, which is only
// available at creation time.
type IssuedInvitation struct {
	Invitation *models.OrganizationInvitation `json:"invitation"`
	Token      string                         `json:"token"`
	AcceptURL  string                         `json:"accept_url"`
}

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationBaseURL sets the frontend URL invitations link to.
func WithInvitationBaseURL(url string) InvitationOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInvitationExpiry overrides the invitation lifetime.
func WithInvitationExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInvitationClock injects a clock for tests.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService invites people into organizations by email.
type InvitationService struct {
	db      *gorm.DB
	members repository.MembershipRepository
	authz   *AuthorizationService
	mailer  mail.Mailer
	audit   *AuditService
	baseURL string
	expiry  time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewInvitationService(db *gorm.DB, members repository.MembershipRepository, authz *AuthorizationService, mailer mail.Mailer, audit *AuditService, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if members == nil || authz == nil {
		return nil, errors.New("invitation service: membership repository and authorization service are required")
	}
	s := &InvitationService{
		db:      db,
		members: members,
		authz:   authz,
		mailer:  mailer,
		audit:   audit,
		expiry:  defaultInvitationExpiry,
		now:     time.Now,
		log:     logger.WithModule("invitations"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Invite creates an invitation and emails it. Owners and admins may invite;
// only owners may invite another owner.
func (s *InvitationService) Invite(ctx context.Context, orgID string, input InviteMemberInput, auth AuthContext) (*IssuedInvitation, error) {
	ctx = ensureContext(ctx)
	orgCtx, err := s.authz.CanManageOrganization(ctx, auth, orgID)
	if err != nil {
		return nil, err
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if input.Role == models.OrgRoleOwner && orgCtx.UserRole != models.OrgRoleOwner {
		return nil, apperrors.NewForbidden("Only owners can invite owners")
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).Take(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(MsgOrganizationNotFound)
		}
		return nil, internalError(err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&models.OrganizationMember{}).
		Joins("JOIN users ON users.id = organization_members.user_id").
		Where("organization_members.organization_id = ? AND LOWER(users.email) = ?", orgID, input.Email).
		Count(&existing).Error; err != nil {
		return nil, internalError(err)
	}
	if existing > 0 {
		return nil, apperrors.NewConflict("User is already a member of this organization")
	}

	token, err := crypto.GenerateToken(defaultInvitationTokenBytes)
	if err != nil {
		return nil, internalError(fmt.Errorf("invitation service: generate token: %w", err))
	}

	invitation := &models.OrganizationInvitation{
		OrganizationID: orgID,
		Email:          input.Email,
		Role:           input.Role,
		TokenHash:      crypto.HashToken(token),
		InvitedBy:      auth.UserID,
		ExpiresAt:      s.now().Add(s.expiry).UTC(),
	}
	if err := s.db.WithContext(ctx).Omit("Organization").Create(invitation).Error; err != nil {
		return nil, internalError(fmt.Errorf("invitation service: create: %w", err))
	}

	issued := &IssuedInvitation{Invitation: invitation, Token: token, AcceptURL: s.acceptURL(token)}
	s.deliver(ctx, &org, issued, auth)

	recordAudit(s.audit, ctx, auditFor(auth, "organization.invite", "organization:"+orgID, "success", map[string]any{
		"email": input.Email,
		"role":  input.Role,
	}))
	return issued, nil
}

// ListPending returns invitations that can still be accepted.
func (s *InvitationService) ListPending(ctx context.Context, orgID string, auth AuthContext) ([]models.OrganizationInvitation, error) {
	ctx = ensureContext(ctx)
	if _, err := s.authz.CanManageOrganization(ctx, auth, orgID); err != nil {
		return nil, err
	}

	var invitations []models.OrganizationInvitation
	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND accepted_at IS NULL AND expires_at > ?", orgID, s.now().UTC()).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, internalError(err)
	}
	return invitations, nil
}

// Revoke deletes a pending invitation.
func (s *InvitationService) Revoke(ctx context.Context, orgID, invitationID string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if _, err := s.authz.CanManageOrganization(ctx, auth, orgID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ? AND accepted_at IS NULL", invitationID, orgID).
		Delete(&models.OrganizationInvitation{})
	if res.Error != nil {
		return internalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound("Invitation not found")
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.invite.revoke", "organization:"+orgID, "success", map[string]any{
		"invitation_id": invitationID,
	}))
	return nil
}

// Accept redeems an invitation token for the caller. The caller's email must
// match the invited address.
func (s *InvitationService) Accept(ctx context.Context, token string, auth AuthContext) (*models.OrganizationMember, error) {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidation("token is required")
	}

	var invitation models.OrganizationInvitation
	err := s.db.WithContext(ctx).Take(&invitation, "token_hash = ?", crypto.HashToken(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Invitation not found")
	}
	if err != nil {
		return nil, internalError(err)
	}

	now := s.now().UTC()
	if invitation.AcceptedAt != nil {
		return nil, apperrors.NewConflict("Invitation has already been accepted")
	}
	if !invitation.Pending(now) {
		return nil, apperrors.NewValidation("Invitation has expired")
	}
	if !strings.EqualFold(invitation.Email, auth.UserEmail) {
		return nil, apperrors.NewForbidden("Invitation was issued to a different email address")
	}

	member := &models.OrganizationMember{
		OrganizationID: invitation.OrganizationID,
		UserID:         auth.UserID,
		Role:           invitation.Role,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.members.WithTx(tx).Add(ctx, member); err != nil {
			return err
		}
		return tx.Model(&invitation).Update("accepted_at", now).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("User is already a member of this organization")
		}
		return nil, internalError(fmt.Errorf("invitation service: accept: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.invite.accept", "organization:"+invitation.OrganizationID, "success", map[string]any{
		"role": invitation.Role,
	}))
	return member, nil
}

// PurgeExpired deletes invitations that expired before the cutoff and were never accepted.
func (s *InvitationService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ensureContext(ctx)).
		Where("accepted_at IS NULL AND expires_at < ?", s.now().UTC()).
		Delete(&models.OrganizationInvitation{})
	if res.Error != nil {
		return 0, fmt.Errorf("invitation service: purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *InvitationService) acceptURL(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, token)
}

// deliver sends the invitation email. Delivery failures are logged; the
// invitation stays valid and can be shared by other means.
func (s *InvitationService) deliver(ctx context.Context, org *models.Organization, issued *IssuedInvitation, auth AuthContext) {
	if s.mailer == nil {
		return
	}
	msg, err := mail.InvitationMessage(mail.Invitation{
		To:               issued.Invitation.Email,
		InviterName:      auth.UserEmail,
		OrganizationName: org.Name,
		Role:             string(issued.Invitation.Role),
		AcceptURL:        issued.AcceptURL,
		ExpiresAt:        issued.Invitation.ExpiresAt,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("failed to send invitation email",
			zap.String("organization_id", org.ID),
			zap.String("email", issued.Invitation.Email),
			zap.Error(err),
		)
	}
}
