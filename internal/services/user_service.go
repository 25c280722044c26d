package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/database"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/permissions"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/pkg/crypto"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrRootUserImmutable ensures the root account cannot be deactivated or deleted.
	ErrRootUserImmutable = apperrors.New("USER_ROOT_IMMUTABLE", "Root user cannot perform this operation", http.StatusBadRequest)
)

// RegisterUserInput describes the fields accepted when creating an account.
type RegisterUserInput struct {
	Username  string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// UpdateUserInput enumerates mutable profile attributes.
type UpdateUserInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
}

// UserFilters captures listing filters.
type UserFilters struct {
	IsActive *bool
	Query    string
}

// UserService manages accounts, credentials and platform roles.
type UserService struct {
	db      *gorm.DB
	members repository.MembershipRepository
	checker PermissionChecker
	audit   *AuditService
	now     func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, members repository.MembershipRepository, checker PermissionChecker, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if members == nil {
		return nil, errors.New("user service: membership repository is required")
	}
	return &UserService{db: db, members: members, checker: checker, audit: audit, now: time.Now}, nil
}

// Register provisions an active account with the default user role.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	return s.create(ctx, input, false)
}

func (s *UserService) create(ctx context.Context, input RegisterUserInput, root bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return nil, apperrors.NewValidation("password is too short")
		}
		return nil, internalError(fmt.Errorf("user service: hash password: %w", err))
	}

	user := &models.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  hashed,
		FirstName: sanitizePlain(input.FirstName),
		LastName:  sanitizePlain(input.LastName),
		IsRoot:    root,
		IsActive:  true,
	}

	roleIDs := []string{database.RoleUser}
	if root {
		roleIDs = append(roleIDs, database.RoleAdmin)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles").Create(user).Error; err != nil {
			return err
		}
		var roles []models.Role
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return fmt.Errorf("user service: load default roles: %w", err)
		}
		if len(roles) != len(roleIDs) {
			return fmt.Errorf("user service: default roles missing: expected %d, found %d", len(roleIDs), len(roles))
		}
		return tx.Model(user).Association("Roles").Append(&roles)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Username or email already exists")
		}
		return nil, internalError(fmt.Errorf("user service: create user: %w", err))
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   strPtr(user.ID),
		Username: user.Username,
		Action:   "user.register",
		Resource: "user:" + user.ID,
		Result:   "success",
		Metadata: map[string]any{"is_root": root},
	})
	return user, nil
}

// Authenticate verifies credentials by username or email and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, internalError(err)
	}
	if !crypto.VerifyPassword(user.Password, password) || !user.IsActive {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   strPtr(user.ID),
			Username: user.Username,
			Action:   "auth.login",
			Resource: "user:" + user.ID,
			Result:   "failure",
		})
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, internalError(err)
	}
	user.LastLoginAt = &now

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   strPtr(user.ID),
		Username: user.Username,
		Action:   "auth.login",
		Resource: "user:" + user.ID,
		Result:   "success",
	})
	return &user, nil
}

// GetByID loads a user including platform roles.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).Preload("Roles").Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("user service: get user: %w", err))
	}
	return &user, nil
}

// List returns users to callers holding user.view.
func (s *UserService) List(ctx context.Context, filters UserFilters, page repository.Pagination, auth AuthContext) (Page[models.User], error) {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.UserView); err != nil {
		return Page[models.User]{}, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if q := strings.ToLower(strings.TrimSpace(filters.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	return paginate[models.User](query, "created_at ASC", page)
}

// Update edits a profile. Users edit themselves; anyone else needs user.edit.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput, auth AuthContext) (*models.User, error) {
	ctx = ensureContext(ctx)
	if err := s.selfOr(ctx, auth, id, permissions.UserEdit); err != nil {
		return nil, err
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.FirstName != nil {
		updates["first_name"] = sanitizePlain(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = sanitizePlain(*input.LastName)
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Username or email already exists")
		}
		return nil, internalError(fmt.Errorf("user service: update user: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "user.update", "user:"+id, "success", nil))
	return s.GetByID(ctx, id)
}

// SetActive activates or deactivates an account. The root account is immutable.
func (s *UserService) SetActive(ctx context.Context, id string, active bool, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.UserEdit); err != nil {
		return err
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsRoot && !active {
		return ErrRootUserImmutable
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return internalError(fmt.Errorf("user service: set active: %w", err))
	}

	action := "user.deactivate"
	if active {
		action = "user.activate"
	}
	recordAudit(s.audit, ctx, auditFor(auth, action, "user:"+id, "success", nil))
	return nil
}

// Delete removes an account and its organization memberships. An account that
// is the only owner of an organization is refused until ownership is handed over.
func (s *UserService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.UserDelete); err != nil {
		return err
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsRoot {
		return ErrRootUserImmutable
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := s.members.WithTx(tx).SoleOwnedOrganizations(ctx, id)
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			return apperrors.NewConflict(MsgLastOwner)
		}
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if err != nil {
		return internalError(fmt.Errorf("user service: delete user: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "user.delete", "user:"+id, "success", nil))
	return nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, current, next string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return apperrors.NewUnauthorized(MsgAuthRequired)
	}
	user, err := s.GetByID(ctx, auth.UserID)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(user.Password, current) {
		return apperrors.ErrInvalidCredentials
	}
	hashed, err := crypto.HashPassword(next)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooShort) {
			return apperrors.NewValidation("password is too short")
		}
		return internalError(err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return internalError(fmt.Errorf("user service: change password: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "user.password_change", "user:"+user.ID, "success", nil))
	return nil
}

func (s *UserService) selfOr(ctx context.Context, auth AuthContext, userID, permissionID string) error {
	if auth.UserID != "" && auth.UserID == userID {
		return nil
	}
	return requirePermission(ctx, s.checker, auth, permissionID)
}
