package middleware

import (
	"net/http"

	"gatekeeper/internal/services"
	"gatekeeper/internal/session"
	"gatekeeper/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RequireLogin rejects requests whose session carries no user id and
// otherwise puts the id on the request context.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := session.FromContext(c).UserID()
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
