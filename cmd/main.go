package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"commerce-service/internal/cache"
	"commerce-service/internal/config"
	"commerce-service/internal/database"
	"commerce-service/internal/email"
	"commerce-service/internal/events"
	"commerce-service/internal/handlers"
	"commerce-service/internal/metrics"
	"commerce-service/internal/middleware"
	"commerce-service/internal/payments"
	"commerce-service/internal/repository"
	"commerce-service/internal/scheduler"
	"commerce-service/internal/services"
	"commerce-service/internal/storage"

	_ "commerce-service/docs"
)

const version = "1.0.0"

// @title Commerce Service API
// @version 1.0.0
// @description Accounts, product catalog, reviews, orders and hosted card checkout

// @contact.name Commerce API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg)
	logger.WithField("version", version).Info("Starting Commerce Service")

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}
	store := repository.NewStore(db)

	ctx := context.Background()

	// Product cache degrades to no-op when Redis is unavailable
	var productCache cache.Cache = cache.NewNoOpCache()
	var cachePinger handlers.Pinger
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Continuing without product cache")
		} else {
			productCache = redisCache
			cachePinger = redisCache
		}
	} else {
		logger.Info("Cache disabled by configuration")
	}
	defer productCache.Close()

	var publisher events.Publisher = events.NoOpPublisher{}
	if cfg.NATS.URL != "" {
		natsClient, err := events.NewClient(events.Config{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: time.Duration(cfg.NATS.ReconnectWait) * time.Second,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher (events won't be published)")
		} else {
			defer natsClient.Close()
			publisher = events.NewNATSPublisher(natsClient, logger)
		}
	}

	imageStorage, err := storage.NewProvider(ctx, storage.Config{
		Provider:        cfg.Storage.Provider,
		Bucket:          cfg.Storage.Bucket,
		PublicURL:       cfg.Storage.PublicURL,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		ForcePathStyle:  cfg.Storage.ForcePathStyle,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		CredentialsFile: cfg.Storage.CredentialsFile,
		LocalBasePath:   cfg.Storage.LocalBasePath,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create storage provider")
	}
	logger.WithField("provider", imageStorage.GetProviderName()).Info("Image storage initialized")

	mailer, err := email.NewSender(email.ProviderConfig{
		Provider:       cfg.Email.Provider,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		AWSRegion:      cfg.Email.SESRegion,
		AWSAccessKeyID: cfg.Storage.AccessKeyID,
		AWSSecretKey:   cfg.Storage.SecretAccessKey,
		SESEndpoint:    cfg.Email.SESEndpoint,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
		SMTPUsername:   cfg.Email.SMTPUsername,
		SMTPPassword:   cfg.Email.SMTPPassword,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create email sender")
	}

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)

	// Services
	passwords := services.NewPasswordService(0)
	jwtService := services.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.GetJWTExpiry())
	accounts := services.NewAccountService(store, passwords, jwtService, mailer, logger)
	catalog := services.NewCatalogService(store, imageStorage, productCache, cfg.GetProductCacheTTL(), logger)
	reviews := services.NewReviewService(store, catalog, logger)
	orders := services.NewOrderService(store, catalog, publisher, logger)
	checkout := services.NewCheckoutService(store, gateway, orders, services.CheckoutConfig{
		Currency:    cfg.Stripe.Currency,
		FrontendURL: cfg.Server.FrontendURL,
	}, logger)

	inventory := scheduler.NewInventoryScheduler(store, cfg.Scheduler, logger)
	if err := inventory.Start(); err != nil {
		logger.WithError(err).Error("Failed to start inventory scheduler")
	}

	router := setupRouter(cfg, logger, imageStorage, &handlers.Router{
		Accounts:   handlers.NewAccountHandler(accounts, logger),
		Products:   handlers.NewProductHandler(catalog, reviews, logger),
		Orders:     handlers.NewOrderHandler(orders, checkout, logger),
		Auth:       middleware.NewAuthMiddleware(jwtService, accounts),
		LoginLimit: middleware.NewRateLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginBurst).Middleware(),
	}, handlers.NewHealthHandler(version, store, cachePinger))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	inventory.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := database.Close(db); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	return logger
}

func setupRouter(cfg *config.Config, logger *logrus.Logger, imageStorage storage.Provider, api *handlers.Router, health *handlers.HealthHandler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	if cfg.Storage.MaxFileSize > 0 {
		router.MaxMultipartMemory = cfg.Storage.MaxFileSize
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.SetupCORS(cfg.Security.AllowedOrigins))
	router.Use(metrics.Middleware())

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if local, ok := imageStorage.(*storage.LocalProvider); ok && cfg.Storage.PublicURL == "" {
		router.Static(storage.LocalMediaPrefix, local.BasePath())
	}

	api.Register(router.Group("/api"))
	return router
}
