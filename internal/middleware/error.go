// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns errors attached with c.Error into the JSON error envelope.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if _, ok := common.IsAPIError(err); !ok {
			logger.Error("Unhandled application error",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDContextKey)),
			)
		}
		common.RespondWithError(c, err)
	}
}

// NoRoute answers unknown endpoints with the error envelope.
func NoRoute(c *gin.Context) {
	common.RespondWithError(c, common.ErrNotFound.WithMessage("The requested endpoint does not exist"))
}

// NoMethod answers a known path hit with the wrong method.
func NoMethod(c *gin.Context) {
	common.RespondWithError(c, common.NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL"))
}
