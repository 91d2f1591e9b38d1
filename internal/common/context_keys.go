// File: internal/common/context_keys.go
package common

// Request header used by the bearer authentication middleware.
const (
	AuthorizationHeader     = "Authorization"
	AuthorizationTypeBearer = "Bearer"
)

// Keys under which AuthMiddleware stores the caller on the gin context.
const (
	UserIDKey      = "userID"
	UserRoleKey    = "userRole"
	FirebaseUIDKey = "firebaseUID"
)
