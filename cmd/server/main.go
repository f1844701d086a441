package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/newzealection/new-zealection/internal/auth"
	"github.com/newzealection/new-zealection/internal/collection"
	"github.com/newzealection/new-zealection/internal/config"
	"github.com/newzealection/new-zealection/internal/database"
	"github.com/newzealection/new-zealection/internal/database/repositories"
	"github.com/newzealection/new-zealection/internal/economy"
	"github.com/newzealection/new-zealection/internal/logger"
	"github.com/newzealection/new-zealection/internal/services"
	"github.com/newzealection/new-zealection/internal/web"
	"github.com/newzealection/new-zealection/internal/web/middleware"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	customHandler := logger.NewHandler("NewZealection")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting New Zealection API",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("type", "sys"))

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	db, err := database.New(ctx, database.DBConfig{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Database:     cfg.DB.Database,
		PoolSize:     cfg.DB.PoolSize,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxLifetime:  cfg.DB.MaxLifetime,
	})
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := db.CreateTables(ctx); err != nil {
		slog.Error("Failed to create tables", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database connected successfully")

	cardRepo := repositories.NewCardRepository(db.BunDB())
	userCardRepo := repositories.NewUserCardRepository(db.BunDB())
	manaRepo := repositories.NewManaRepository(db.BunDB())
	saleRepo := repositories.NewSaleRepository(db.BunDB())
	profileRepo := repositories.NewProfileRepository(db.BunDB())

	txManager := economy.NewTransactionManager(db.BunDB())

	var imageService *services.ImageService
	if cfg.Spaces.Key != "" {
		imageService, err = services.NewImageService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.CardRoot,
		)
		if err != nil {
			slog.Error("Failed to set up image storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	secureCookies := strings.HasPrefix(cfg.Web.PublicURL, "https://")

	webApp := &web.WebApp{
		Config:      cfg,
		DB:          db,
		Cards:       cardRepo,
		Profiles:    profileRepo,
		Sales:       saleRepo,
		Collection:  collection.NewService(cardRepo, userCardRepo),
		Roll:        economy.NewRollService(txManager, cardRepo, userCardRepo),
		Sell:        economy.NewSellService(txManager, userCardRepo, manaRepo, saleRepo),
		Mana:        economy.NewManaService(manaRepo),
		OAuth:       auth.NewOAuthService(cfg.Web.OAuth),
		Sessions:    auth.NewSessionService(cfg.Web.SessionKey, secureCookies),
		Broadcaster: auth.NewBroadcaster(),
		Images:      imageService,
		Mail:        services.NewMailService(cfg.Mail.APIKey, cfg.Mail.SenderEmail, cfg.Mail.SenderName),
		Version:     version,
	}

	app := fiber.New(fiber.Config{
		AppName:      "New Zealection API",
		ServerHeader: "NewZealection",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Web.PublicURL,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,Cookie",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware())

	web.SetupRoutes(app, webApp)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	slog.Info("Starting server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	slog.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	db.Close()

	slog.Info("Server shutdown complete")
}
