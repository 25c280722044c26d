// Package security evaluates the deployment's security posture from its
// configuration and data.
package security

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/app"
	"github.com/charlesng35/estatehub/internal/models"
)

type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	CheckRootUser      = "root_user_present"
	CheckJWTSecret     = "jwt_secret_strength"
	CheckTransport     = "transport_security"
	CheckCORS          = "cors_origins"
	CheckRateLimit     = "rate_limiting"
	CheckLoginThrottle = "login_throttle"
)

// Check is the outcome of a single posture verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Report aggregates every check with a per-status count.
type Report struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Report) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// PostureService inspects configuration and data for risky settings.
// A nil db or cfg degrades the affected checks to warnings.
type PostureService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

func NewPostureService(db *gorm.DB, cfg *app.Config) *PostureService {
	return &PostureService{db: db, cfg: cfg, now: time.Now}
}

// WithClock overrides the report timestamp source.
func (s *PostureService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes every check.
func (s *PostureService) Run(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkRootUser(ctx),
		s.checkJWTSecret(),
		s.checkTransport(),
		s.checkCORS(),
		s.checkRateLimit(),
		s.checkLoginThrottle(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Report{CheckedAt: s.now().UTC(), Checks: checks, Summary: summary}
}

func missingConfig(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Configuration not loaded.",
		Remediation: "Load configuration before running the posture check.",
	}
}

func (s *PostureService) checkRootUser(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          CheckRootUser,
			Status:      StatusWarn,
			Message:     "Database unavailable, root user presence unknown.",
			Remediation: "Restore database connectivity and retry.",
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_root = ? AND is_active = ?", true, true).
		Count(&count).Error; err != nil {
		return Check{
			ID:          CheckRootUser,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count root users: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count == 0 {
		return Check{
			ID:          CheckRootUser,
			Status:      StatusFail,
			Message:     "No active root user found.",
			Remediation: "Run first-time setup or reactivate a root account.",
		}
	}
	return Check{
		ID:      CheckRootUser,
		Status:  StatusPass,
		Message: "Active root user present.",
		Details: map[string]any{"count": count},
	}
}

func (s *PostureService) checkJWTSecret() Check {
	if s.cfg == nil {
		return missingConfig(CheckJWTSecret)
	}

	length := len(s.cfg.Auth.JWT.Secret)
	switch {
	case length == 0:
		return Check{
			ID:          CheckJWTSecret,
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Set ESTATEHUB_AUTH_JWT_SECRET to at least 32 random bytes.",
		}
	case length < 32:
		return Check{
			ID:          CheckJWTSecret,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
			Details:     map[string]any{"length": length},
		}
	case length < 48:
		return Check{
			ID:          CheckJWTSecret,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes.", length),
			Remediation: "Increase ESTATEHUB_AUTH_JWT_SECRET to 48 bytes or more.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      CheckJWTSecret,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *PostureService) checkTransport() Check {
	if s.cfg == nil {
		return missingConfig(CheckTransport)
	}

	u, err := url.Parse(strings.TrimSpace(s.cfg.Server.PublicURL))
	if err != nil || u.Host == "" {
		return Check{
			ID:          CheckTransport,
			Status:      StatusWarn,
			Message:     "Public URL is not set, invitation links may be wrong.",
			Remediation: "Set server.public_url to the externally reachable address.",
		}
	}

	local := u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1"
	switch {
	case u.Scheme != "https" && !local:
		return Check{
			ID:          CheckTransport,
			Status:      StatusFail,
			Message:     fmt.Sprintf("Public URL %s is served over %s.", u.Host, u.Scheme),
			Remediation: "Terminate TLS in front of the API and use an https public URL.",
		}
	case u.Scheme == "https" && !s.cfg.Server.HSTS:
		return Check{
			ID:          CheckTransport,
			Status:      StatusWarn,
			Message:     "HTTPS is used but HSTS is disabled.",
			Remediation: "Enable server.hsts.",
		}
	default:
		return Check{ID: CheckTransport, Status: StatusPass, Message: "Transport settings are consistent."}
	}
}

func (s *PostureService) checkCORS() Check {
	if s.cfg == nil {
		return missingConfig(CheckCORS)
	}
	for _, origin := range s.cfg.Server.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Check{
				ID:          CheckCORS,
				Status:      StatusWarn,
				Message:     "CORS allows every origin.",
				Remediation: "List the front-end origins in server.cors.allowed_origins.",
			}
		}
	}
	return Check{
		ID:      CheckCORS,
		Status:  StatusPass,
		Message: "CORS origins are restricted.",
		Details: map[string]any{"origins": s.cfg.Server.CORS.AllowedOrigins},
	}
}

func (s *PostureService) checkRateLimit() Check {
	if s.cfg == nil {
		return missingConfig(CheckRateLimit)
	}
	rl := s.cfg.Server.RateLimit
	if rl.Requests <= 0 || rl.Window <= 0 {
		return Check{
			ID:          CheckRateLimit,
			Status:      StatusFail,
			Message:     "Request rate limiting is disabled.",
			Remediation: "Set server.rate_limit.requests and server.rate_limit.window.",
		}
	}
	return Check{
		ID:      CheckRateLimit,
		Status:  StatusPass,
		Message: fmt.Sprintf("%d requests per %s per client.", rl.Requests, rl.Window),
		Details: map[string]any{"store": rl.Store},
	}
}

func (s *PostureService) checkLoginThrottle() Check {
	if s.cfg == nil {
		return missingConfig(CheckLoginThrottle)
	}
	limit := s.cfg.Auth.LoginLimit
	switch {
	case limit <= 0:
		return Check{
			ID:          CheckLoginThrottle,
			Status:      StatusFail,
			Message:     "Login attempts are not throttled.",
			Remediation: "Set auth.login_limit to a small positive value.",
		}
	case limit > 30:
		return Check{
			ID:          CheckLoginThrottle,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Login limit of %d attempts per window is generous.", limit),
			Remediation: "Lower auth.login_limit to slow credential stuffing.",
		}
	default:
		return Check{ID: CheckLoginThrottle, Status: StatusPass, Message: fmt.Sprintf("Login limited to %d attempts per window.", limit)}
	}
}
