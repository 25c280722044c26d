package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/estatehub/internal/app"
	iauth "github.com/charlesng35/estatehub/internal/auth"
	"github.com/charlesng35/estatehub/internal/handlers"
	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/monitoring"
	"github.com/charlesng35/estatehub/internal/permissions"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config    *app.Config
	JWT       *iauth.JWTService
	Services  *Services
	Health    *monitoring.HealthManager
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("api: config must be provided")
	}
	if deps.JWT == nil {
		return nil, errors.New("api: jwt service must be provided")
	}
	if deps.Services == nil {
		return nil, errors.New("api: services must be provided")
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	cfg := deps.Config
	svc := deps.Services

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.HSTS))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))
	r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	health := handlers.NewHealthHandler(deps.Health)
	r.GET("/health", health.Overall)
	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(deps.JWT, svc.Authorization, svc.Users)
	optionalAuth := middleware.OptionalAuth(deps.JWT, svc.Authorization, svc.Users)
	requirePermission := func(id string) gin.HandlerFunc {
		return middleware.RequirePermission(svc.Checker, id)
	}

	authHandler := handlers.NewAuthHandler(svc.Users, svc.Organizations, deps.JWT, svc.Checker, cfg.Auth.OpenSignup)
	setupHandler := handlers.NewSetupHandler(svc.Setup)
	propertyHandler := handlers.NewPropertyHandler(svc.Properties)
	orgHandler := handlers.NewOrganizationHandler(svc.Organizations, svc.Invitations)
	developerHandler := handlers.NewDeveloperHandler(svc.Developers)
	projectHandler := handlers.NewProjectHandler(svc.Projects)
	articleHandler := handlers.NewArticleHandler(svc.Articles)
	amenityHandler := handlers.NewAmenityHandler(svc.Amenities)
	userHandler := handlers.NewUserHandler(svc.Users)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	securityHandler := handlers.NewSecurityHandler(svc.Posture)

	// Public
	attempts, window := cfg.Auth.LoginThrottle()
	loginLimit := middleware.RateLimit(middleware.WithKeyPrefix(deps.RateStore, "login:"), attempts, window)
	public := r.Group("/api")
	{
		public.POST("/auth/login", loginLimit, authHandler.Login)
		public.POST("/auth/register", loginLimit, authHandler.Register)
		public.GET("/setup/status", setupHandler.Status)
		public.POST("/setup/initialize", setupHandler.Initialize)

		public.GET("/amenities", amenityHandler.List)
		public.GET("/developers", developerHandler.List)
		public.GET("/developers/:id", developerHandler.Get)
		public.GET("/projects", projectHandler.List)
		public.GET("/projects/:id", projectHandler.Get)
		public.GET("/articles", articleHandler.List)
		public.GET("/articles/:slug", optionalAuth, articleHandler.Get)
	}

	// Authenticated
	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/password", authHandler.ChangePassword)

	properties := api.Group("/properties")
	{
		properties.POST("", propertyHandler.Create)
		properties.GET("", propertyHandler.List)
		properties.GET("/:id", propertyHandler.Get)
		properties.PATCH("/:id", propertyHandler.Update)
		properties.DELETE("/:id", propertyHandler.Delete)
		properties.POST("/:id/images", propertyHandler.AddImage)
		properties.DELETE("/:id/images/:imageID", propertyHandler.RemoveImage)
		properties.POST("/:id/amenities", propertyHandler.AddAmenity)
		properties.DELETE("/:id/amenities/:amenityID", propertyHandler.RemoveAmenity)
	}

	orgs := api.Group("/orgs")
	{
		orgs.GET("", orgHandler.List)
		orgs.POST("", orgHandler.Create)
		orgs.GET("/:id", orgHandler.Get)
		orgs.PATCH("/:id", orgHandler.Update)
		orgs.DELETE("/:id", orgHandler.Delete)
		orgs.GET("/:id/members", orgHandler.ListMembers)
		orgs.PATCH("/:id/members/:userID", orgHandler.UpdateMemberRole)
		orgs.DELETE("/:id/members/:userID", orgHandler.RemoveMember)
		orgs.POST("/:id/leave", orgHandler.Leave)
		orgs.GET("/:id/invitations", orgHandler.ListInvitations)
		orgs.POST("/:id/invitations", orgHandler.Invite)
		orgs.DELETE("/:id/invitations/:invitationID", orgHandler.RevokeInvitation)
	}
	api.POST("/invitations/accept", orgHandler.AcceptInvitation)
	api.GET("/admin/orgs", requirePermission(permissions.OrgManageAll), orgHandler.ListAll)

	api.POST("/developers", developerHandler.Create)
	api.PATCH("/developers/:id", developerHandler.Update)
	api.DELETE("/developers/:id", developerHandler.Delete)

	api.POST("/projects", projectHandler.Create)
	api.PATCH("/projects/:id", projectHandler.Update)
	api.DELETE("/projects/:id", projectHandler.Delete)

	api.POST("/articles", articleHandler.Create)
	api.PATCH("/articles/:slug", articleHandler.Update)
	api.DELETE("/articles/:slug", articleHandler.Delete)
	api.POST("/articles/:slug/publish", articleHandler.Publish)
	api.POST("/articles/:slug/unpublish", articleHandler.Unpublish)

	api.POST("/amenities", amenityHandler.Create)
	api.PATCH("/amenities/:id", amenityHandler.Update)
	api.DELETE("/amenities/:id", amenityHandler.Delete)

	users := api.Group("/users")
	{
		users.GET("", userHandler.List)
		users.GET("/:id", requirePermission(permissions.UserView), userHandler.Get)
		users.PATCH("/:id", userHandler.Update)
		users.POST("/:id/activate", userHandler.Activate)
		users.POST("/:id/deactivate", userHandler.Deactivate)
		users.DELETE("/:id", userHandler.Delete)
	}

	api.GET("/audit", requirePermission(permissions.AuditView), auditHandler.List)
	api.GET("/security/posture", requirePermission(permissions.AuditView), securityHandler.Posture)

	r.NoRoute(middleware.NotFoundHandler)
	return r, nil
}
