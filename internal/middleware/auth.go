// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/user"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier validates identity provider ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserProvisioner resolves verified claims to a local account.
type UserProvisioner interface {
	GetOrCreateUserFromFirebaseClaims(ctx context.Context, token *auth.Token) (*user.User, error)
}

// AuthMiddleware verifies the Bearer ID token, loads the caller's account and
// rejects deactivated accounts before any handler runs.
func AuthMiddleware(verifier TokenVerifier, users UserProvisioner, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken := common.GetTokenFromContext(c)
		if idToken == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Authorization header must be 'Bearer <token>'"))
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			logger.Debug("Token verification failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Invalid or expired token"))
			return
		}

		account, err := users.GetOrCreateUserFromFirebaseClaims(c.Request.Context(), token)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		if !account.IsActive {
			logger.Info("Deactivated account rejected", zap.String("user_id", account.ID.String()))
			common.RespondWithError(c, common.ErrForbidden.WithMessage("Account deactivated"))
			return
		}

		c.Set(common.UserIDKey, account.ID)
		c.Set(common.UserRoleKey, account.Role)
		c.Set(common.FirebaseUIDKey, token.UID)
		c.Next()
	}
}

// RoleAuthMiddleware allows the request through only when the caller holds one of allowedRoles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithMessage("You do not have sufficient permissions for this resource"))
	}
}
