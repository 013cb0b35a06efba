package main

import (
	"context"
	"log"
	"time"

	"gatekeeper/config"
	"gatekeeper/internal/handler"
	"gatekeeper/internal/redis"
	"gatekeeper/internal/server"
	"gatekeeper/internal/services"
	"gatekeeper/internal/session"
	"gatekeeper/pkg/database"
	"gatekeeper/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		l.Errorf("Failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		l.Errorf("Failed to apply migrations: %v", err)
		return
	}

	authService := services.NewAuthService(db, nil, services.NewBcryptHasher(cfg.BcryptCost), l)

	var limiter *redis.RateLimiter
	if cfg.UsesRedis() {
		client := redis.NewClient(redis.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := redis.Ping(ctx, client); err != nil {
			l.Errorf("Failed to connect to redis: %v", err)
			return
		}
		if cfg.RateLimitEnabled {
			limiter = redis.NewRateLimiter(client, redis.RateLimitConfig{
				AuthLimit:  cfg.AuthRateLimit,
				AuthWindow: time.Duration(cfg.AuthRateWindowSeconds) * time.Second,
			})
		}
	}

	store, err := session.NewStore(session.StoreOptions{
		Backend:       cfg.SessionStore,
		Secret:        []byte(cfg.SessionSecret),
		MaxAgeSeconds: cfg.SessionMaxAgeSeconds,
		Secure:        cfg.AppMode == server.ReleaseMode,
		RedisAddr:     cfg.RedisAddr(),
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		l.Errorf("Failed to create session store: %v", err)
		return
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth: handler.NewAuthHandler(authService, cfg.HomePath),
	}, server.Dependencies{
		DB:           db,
		SessionStore: store,
		RateLimiter:  limiter,
	})

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
