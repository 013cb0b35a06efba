// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"

	"gatekeeper/internal/domain/user"
	"gatekeeper/internal/services"
	"gatekeeper/internal/session"
	"gatekeeper/internal/transport/httpdto"
	gatekeeper_errors "gatekeeper/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Authenticator is the part of services.AuthService the handlers use.
type Authenticator interface {
	Register(ctx context.Context, in services.RegisterInput) (services.RegisterResult, error)
	Login(ctx context.Context, in services.LoginInput) (user.User, error)
	CurrentUser(ctx context.Context, id int64) (user.User, error)
}

// AttemptResetter forgets the failed-attempt count of a client.
// *redis.RateLimiter satisfies it.
type AttemptResetter interface {
	ResetAuth(ctx context.Context, ip string) error
}

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	service  Authenticator
	homePath string
	attempts AttemptResetter
}

// NewAuthHandler creates an auth handler that redirects to homePath after login and logout.
func NewAuthHandler(service Authenticator, homePath string) *AuthHandler {
	if homePath == "" {
		homePath = "/"
	}
	return &AuthHandler{service: service, homePath: homePath}
}

// WithAttemptResetter clears the caller's auth throttle after a successful login.
func (h *AuthHandler) WithAttemptResetter(r AttemptResetter) *AuthHandler {
	h.attempts = r
	return h
}

// LoginForm tells the client to show the sign-in form.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	h.formPage(c, httpdto.FormTypeSignIn)
}

// RegisterForm tells the client to show the sign-up form.
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	h.formPage(c, httpdto.FormTypeSignUp)
}

func (h *AuthHandler) formPage(c *gin.Context, formType string) {
	s := session.FromContext(c)
	flashes := s.Flashes()
	if len(flashes) > 0 {
		if err := s.Save(); err != nil {
			_ = c.Error(err)
			return
		}
	}
	c.JSON(http.StatusOK, httpdto.FormPage{Type: formType, Flashes: flashes})
}

// Login authenticates the submitted credentials. Any existing session is
// dropped first, so a failed attempt also logs the caller out.
func (h *AuthHandler) Login(c *gin.Context) {
	s := session.FromContext(c)
	s.Clear()

	var form httpdto.CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		if err := s.Save(); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	u, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		msg, ok := services.UserMessage(err)
		if !ok {
			if saveErr := s.Save(); saveErr != nil {
				_ = c.Error(saveErr)
			}
			_ = c.Error(err)
			return
		}
		s.AddFlash(msg)
		if err := s.Save(); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, httpdto.LoginFailure{Type: httpdto.FormTypeSignIn, Error: msg})
		return
	}

	s.SetUserID(u.ID)
	if err := s.Save(); err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, h.homePath)

	if h.attempts != nil {
		// response is already written, so the error middleware only logs this
		if err := h.attempts.ResetAuth(c.Request.Context(), c.ClientIP()); err != nil {
			_ = c.Error(err)
		}
	}
}

// Register creates a user account. It does not log the new user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var form httpdto.CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), services.RegisterInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		msg, ok := services.UserMessage(err)
		if !ok {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, httpdto.RegisterFailure{Error: msg})
		return
	}

	c.JSON(http.StatusOK, httpdto.RegisterSuccess{Success: res.Username})
}

// Logout clears the session and redirects home.
func (h *AuthHandler) Logout(c *gin.Context) {
	s := session.FromContext(c)
	s.Clear()
	if err := s.Save(); err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, h.homePath)
}

// Me returns the logged-in user. Requires middleware.RequireLogin.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	u, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gatekeeper_errors.ErrNotFound) {
			// user removed since login
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.MeResponse{ID: u.ID, Username: u.Username})
}

// Home reports who, if anyone, the session belongs to.
func (h *AuthHandler) Home(c *gin.Context) {
	var resp httpdto.HomeResponse
	if id, ok := session.FromContext(c).UserID(); ok {
		resp.UserID = &id
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		return
	}
	c.JSON(status, httpdto.NewErrorResponse(err.Error(), errorCode(status)))
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
