package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sentinel-ops/sentinel-backend-go/pkg/errors"
	"github.com/sentinel-ops/sentinel-backend-go/pkg/utils"
)

// ErrorHandlingMiddleware recovers from handler panics, logs the stack and
// returns a standardized error response
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"ip":          c.ClientIP(),
			"user_agent":  c.GetHeader("User-Agent"),
			"panic":       recovered,
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		utils.SendError(c, http.StatusInternalServerError, "Internal server error")
		c.Abort()
	})
}

// ErrorResponseMiddleware converts handler errors pushed onto the gin context
// into standardized responses
func ErrorResponseMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")

		if errors.IsAppError(err) {
			utils.SendAppError(c, err)
			return
		}
		utils.SendError(c, http.StatusInternalServerError, "Internal server error")
	}
}
