package app

import (
	"strings"
	"time"

	"github.com/charlesng35/estatehub/internal/auth"
	"github.com/charlesng35/estatehub/pkg/mail"
)

const (
	defaultLoginWindow = time.Minute
	defaultInviteTTL   = 7 * 24 * time.Hour
)

// JWTServiceConfig is the token signer configuration.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}
	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL: ttl,
	}
}

// LoginThrottle returns the attempts allowed per window on login and register.
// A non-positive limit disables throttling.
func (c AuthConfig) LoginThrottle() (int, time.Duration) {
	window := c.LoginWindow
	if window <= 0 {
		window = defaultLoginWindow
	}
	return c.LoginLimit, window
}

// InvitationTTL is how long an organization invitation stays acceptable.
func (c AuthConfig) InvitationTTL() time.Duration {
	if c.InviteTTL <= 0 {
		return defaultInviteTTL
	}
	return c.InviteTTL
}

// SMTPSettings is the mailer configuration for invitation delivery.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	s := c.SMTP
	return mail.SMTPSettings{
		Enabled:  s.Enabled,
		Host:     strings.TrimSpace(s.Host),
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     strings.TrimSpace(s.From),
		UseTLS:   s.UseTLS,
		Timeout:  s.Timeout,
	}
}
