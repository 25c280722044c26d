package middleware

import (
	"context"
	stdErrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/auditctx"
	iauth "github.com/charlesng35/estatehub/internal/auth"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/metrics"
	"github.com/charlesng35/estatehub/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxAuthKey   = "authContext"
	CtxUserIDKey = "userID"
)

// AccountLookup loads the account a token was issued to.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth requires a valid bearer token and stores the caller's AuthContext. When
// accounts is set, tokens of deleted or deactivated users are refused.
func Auth(jwt *iauth.JWTService, authz *services.AuthorizationService, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, jwt, authz, accounts); err != nil {
			abortUnauthenticated(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth authenticates when a bearer token is present and lets anonymous
// requests through. An invalid token is still rejected.
func OptionalAuth(jwt *iauth.JWTService, authz *services.AuthorizationService, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if err := authenticate(c, jwt, authz, accounts); err != nil {
			abortUnauthenticated(c, err)
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, err *errors.AppError) {
	if err.StatusCode == errors.ErrUnauthorized.StatusCode {
		c.Header("WWW-Authenticate", "Bearer")
	}
	response.Error(c, err)
	c.Abort()
}

func authenticate(c *gin.Context, jwt *iauth.JWTService, authz *services.AuthorizationService, accounts AccountLookup) *errors.AppError {
	token, ok := iauth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		metrics.AuthAttempts.WithLabelValues("missing").Inc()
		return errors.ErrUnauthorized
	}
	claims, err := jwt.Validate(token)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return errors.ErrUnauthorized
	}
	auth, err := authz.ValidateAuthContext(&services.Session{UserID: claims.UserID, Email: claims.Email})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
		return errors.ErrUnauthorized
	}
	if accounts != nil {
		user, err := accounts.GetByID(c.Request.Context(), auth.UserID)
		switch {
		case stdErrors.Is(err, services.ErrUserNotFound):
			metrics.AuthAttempts.WithLabelValues("unknown_user").Inc()
			return errors.ErrUnauthorized
		case err != nil:
			return errors.FromError(err)
		case !user.IsActive:
			metrics.AuthAttempts.WithLabelValues("inactive").Inc()
			return errors.ErrUnauthorized
		}
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	c.Set(CtxClaimsKey, claims)
	c.Set(CtxAuthKey, auth)
	c.Set(CtxUserIDKey, auth.UserID)
	c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), auditctx.Actor{
		UserID:         auth.UserID,
		Email:          auth.UserEmail,
		OrganizationID: ActiveOrganization(c),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	}))
	return nil
}

// AuthFromContext returns the caller identity stored by Auth or OptionalAuth.
func AuthFromContext(c *gin.Context) (services.AuthContext, bool) {
	v, ok := c.Get(CtxAuthKey)
	if !ok {
		return services.AuthContext{}, false
	}
	auth, ok := v.(services.AuthContext)
	return auth, ok
}
