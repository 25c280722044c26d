package services

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

// ErrAlreadyInitialized is returned once any account exists.
var ErrAlreadyInitialized = apperrors.New("ALREADY_INITIALIZED", "System already initialized", http.StatusConflict)

// SetupService bootstraps the first, root account.
type SetupService struct {
	db    *gorm.DB
	users *UserService
}

func NewSetupService(db *gorm.DB, users *UserService) (*SetupService, error) {
	if db == nil || users == nil {
		return nil, errors.New("setup service: db and user service are required")
	}
	return &SetupService{db: db, users: users}, nil
}

// Initialized reports whether any account exists.
func (s *SetupService) Initialized(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, internalError(err)
	}
	return count > 0, nil
}

// Initialize creates the root account holding the admin role.
func (s *SetupService) Initialize(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	initialized, err := s.Initialized(ctx)
	if err != nil {
		return nil, err
	}
	if initialized {
		return nil, ErrAlreadyInitialized
	}
	return s.users.create(ctx, input, true)
}
