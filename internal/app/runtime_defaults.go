package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/estatehub/pkg/crypto"
)

const (
	jwtSecretBytes = 48
	defaultIssuer  = "estatehub"
)

// ApplyRuntimeDefaults completes a loaded configuration before the server
// starts: it generates a JWT secret when none is set, fills the issuer, and
// normalises enumerated settings. The returned map names generated secrets so
// callers can warn about them without logging values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}
	if strings.TrimSpace(cfg.Auth.JWT.Issuer) == "" {
		cfg.Auth.JWT.Issuer = defaultIssuer
	}

	cfg.Server.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Server.PublicURL), "/")
	cfg.Server.RateLimit.Store = strings.ToLower(strings.TrimSpace(cfg.Server.RateLimit.Store))
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return generated, nil
}
