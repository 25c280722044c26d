package api

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/app"
	"github.com/charlesng35/estatehub/internal/permissions"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/internal/security"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/internal/storage"
	"github.com/charlesng35/estatehub/pkg/mail"
)

// ServiceOptions carries the infrastructure the services are built on.
type ServiceOptions struct {
	Store     storage.Store
	Mailer    mail.Mailer
	PublicURL string
	InviteTTL time.Duration
	// Config feeds the security posture report. Optional.
	Config *app.Config
}

// Services is the composition of every domain service over one database.
type Services struct {
	Checker       *permissions.Checker
	Audit         *services.AuditService
	Authorization *services.AuthorizationService
	Users         *services.UserService
	Setup         *services.SetupService
	Organizations *services.OrganizationService
	Invitations   *services.InvitationService
	Properties    *services.PropertyService
	Amenities     *services.AmenityService
	Developers    *services.DeveloperService
	Projects      *services.ProjectService
	Articles      *services.ArticleService
	Posture       *security.PostureService
}

// NewServices wires repositories and services together.
func NewServices(db *gorm.DB, opts ServiceOptions) (*Services, error) {
	if db == nil {
		return nil, errors.New("api: database handle must be provided")
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	members, err := repository.NewMembershipRepository(db)
	if err != nil {
		return nil, err
	}
	properties, err := repository.NewPropertyRepository(db)
	if err != nil {
		return nil, err
	}
	authz, err := services.NewAuthorizationService(members)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Checker:       checker,
		Audit:         audit,
		Authorization: authz,
		Posture:       security.NewPostureService(db, opts.Config),
	}

	if s.Users, err = services.NewUserService(db, members, checker, audit); err != nil {
		return nil, err
	}
	if s.Setup, err = services.NewSetupService(db, s.Users); err != nil {
		return nil, err
	}
	if s.Organizations, err = services.NewOrganizationService(db, members, authz, checker, audit); err != nil {
		return nil, err
	}

	mailer := opts.Mailer
	if mailer == nil {
		mailer = &mail.Recorder{}
	}
	inviteOpts := []services.InvitationOption{services.WithInvitationBaseURL(opts.PublicURL)}
	if opts.InviteTTL > 0 {
		inviteOpts = append(inviteOpts, services.WithInvitationExpiry(opts.InviteTTL))
	}
	if s.Invitations, err = services.NewInvitationService(db, members, authz, mailer, audit, inviteOpts...); err != nil {
		return nil, err
	}

	if s.Amenities, err = services.NewAmenityService(db, checker, audit); err != nil {
		return nil, err
	}
	if s.Properties, err = services.NewPropertyService(properties, authz, s.Amenities, opts.Store, audit); err != nil {
		return nil, err
	}
	if s.Developers, err = services.NewDeveloperService(db, authz, audit); err != nil {
		return nil, err
	}
	if s.Projects, err = services.NewProjectService(db, authz, audit); err != nil {
		return nil, err
	}
	if s.Articles, err = services.NewArticleService(db, authz, audit); err != nil {
		return nil, err
	}
	return s, nil
}
