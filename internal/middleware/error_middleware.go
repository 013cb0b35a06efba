package middleware

import (
	"net/http"

	"gatekeeper/internal/transport/httpdto"
	"gatekeeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns errors attached with c.Error into the JSON error envelope.
// Internal details are logged, never returned to the client.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.ErrorCtx(c.Request.Context(), "request error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		}
		if c.Writer.Written() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, httpdto.NewErrorResponse("internal server error", "INTERNAL_ERROR"))
	}
}
