package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/api"
	"github.com/charlesng35/estatehub/internal/app"
	"github.com/charlesng35/estatehub/internal/app/maintenance"
	iauth "github.com/charlesng35/estatehub/internal/auth"
	"github.com/charlesng35/estatehub/internal/cache"
	"github.com/charlesng35/estatehub/internal/database"
	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/monitoring"
	"github.com/charlesng35/estatehub/internal/monitoring/checks"
	"github.com/charlesng35/estatehub/pkg/logger"
	"github.com/charlesng35/estatehub/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Services *api.Services
	Health   *monitoring.HealthManager
	Jobs     *monitoring.JobTracker
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime opens the database, builds services and the HTTP router, and
// starts the maintenance scheduler.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	store, err := cfg.Storage.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise blob storage: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.Services, err = api.NewServices(stack.DB, api.ServiceOptions{
		Store:     store,
		Mailer:    mailer,
		PublicURL: cfg.Server.PublicURL,
		InviteTTL: cfg.Auth.InvitationTTL(),
		Config:    cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	rateStore, counter, err := openRateStore(cfg, stack.DB)
	if err != nil {
		return nil, err
	}

	stack.Jobs = monitoring.NewJobTracker()
	stack.Health = monitoring.NewHealthManager()
	stack.Health.RegisterReadiness(checks.Database(stack.DB, 0))
	stack.Health.RegisterReadiness(checks.Maintenance(stack.Jobs, 0))

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{
			maintenance.WithTracker(stack.Jobs),
			maintenance.WithAuditRetention(cfg.Maintenance.AuditRetention),
			maintenance.WithInvitationSchedule(cfg.Maintenance.InvitationSchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		}
		if counter != nil {
			opts = append(opts, maintenance.WithRateCounters(counter, cfg.Maintenance.RateCounterSchedule))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Services.Invitations, stack.Services.Audit, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		JWT:       jwtSvc,
		Services:  stack.Services,
		Health:    stack.Health,
		RateStore: rateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs, runs a final cleanup pass and closes the database.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		if stopCtx := s.Cleaner.Stop(); stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

// openRateStore picks the request counter backend. The database backend is
// shared by every instance and returned so maintenance can purge it.
func openRateStore(cfg *app.Config, db *gorm.DB) (middleware.RateStore, *cache.Counter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Server.RateLimit.Store)) {
	case "", "memory":
		return middleware.NewMemoryRateStore(), nil, nil
	case "database":
		counter, err := cache.NewCounter(db)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise rate counter: %w", err)
		}
		return counter, counter, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limit store %q", cfg.Server.RateLimit.Store)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
