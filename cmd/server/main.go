package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/userstack/auth-service/internal/config"
	"github.com/userstack/auth-service/internal/database"
	"github.com/userstack/auth-service/internal/handler"
	"github.com/userstack/auth-service/internal/httperr"
	"github.com/userstack/auth-service/internal/mailer"
	"github.com/userstack/auth-service/internal/queue"
	"github.com/userstack/auth-service/internal/repository"
	"github.com/userstack/auth-service/internal/router"
	"github.com/userstack/auth-service/internal/service"
	"github.com/userstack/auth-service/internal/token"
)

func main() {
	// Local development reads a .env file; deployed environments inject
	// real variables and the missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := users.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	codec := token.NewCodec(cfg)
	auth := service.NewAuthService(users, codec, queue.NewPublisher(), cfg)
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("admin seed: %v", err)
	}

	// Background mail pipeline: the consumer owns its reconnect loop.
	mail := mailer.New(config.LoadMailConfig(), cfg.SiteTitle)
	go queue.StartEmailConsumer(mail)

	// Redis is optional; a nil client disables rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HTTPErrorHandler = httperr.NewHandler(cfg.IsDevelopment())

	authHandler := handler.NewAuthHandler(auth)
	adminHandler := handler.NewAdminHandler(auth)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, codec, config.LoadRateLimitConfig(), rdb)
	router.RegisterAdmin(e, authHandler, adminHandler, codec)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
