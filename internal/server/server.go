package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatekeeper/config"
	"gatekeeper/internal/handler"
	"gatekeeper/internal/middleware"
	"gatekeeper/internal/redis"
	"gatekeeper/internal/session"
	"gatekeeper/internal/transport/httpdto"
	"gatekeeper/pkg/database"
	"gatekeeper/pkg/logger"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth *handler.AuthHandler
}

// Dependencies are the shared resources routes need. RateLimiter may be nil.
type Dependencies struct {
	DB           *sql.DB
	SessionStore sessions.Store
	RateLimiter  *redis.RateLimiter
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSAllowedOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), deps.DB); err != nil {
			if s.logger != nil {
				s.logger.Warnf("health check failed: %s", err)
			}
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("database unavailable", "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	web := s.engine.Group("/", session.Middleware(deps.SessionStore))
	web.GET("/", handlers.Auth.Home)

	throttle := func(c *gin.Context) { c.Next() }
	budget := throttle
	if deps.RateLimiter != nil {
		throttle = middleware.AuthRateLimitMiddleware(deps.RateLimiter, s.logger)
		budget = middleware.AuthRateLimitStatusMiddleware(deps.RateLimiter, s.logger)
		handlers.Auth.WithAttemptResetter(deps.RateLimiter)
	}

	auth := web.Group("/auth")
	{
		auth.GET("/login", budget, handlers.Auth.LoginForm)
		auth.POST("/login", throttle, handlers.Auth.Login)
		auth.GET("/register", budget, handlers.Auth.RegisterForm)
		auth.POST("/register", throttle, handlers.Auth.Register)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireLogin(), handlers.Auth.Me)
	}
}

// Start serves until SIGINT/SIGTERM and then shuts down gracefully.
// It returns early with the error if the listener cannot be started.
func (s *Server) Start() error {
	serveErr := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	select {
	case err := <-serveErr:
		if s.logger != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-quit:
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
