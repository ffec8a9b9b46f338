package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marinova/internal/config"
	"marinova/internal/db"
	"marinova/internal/email"
	apihttp "marinova/internal/http"
	"marinova/internal/llm"
	"marinova/internal/logging"
	"marinova/internal/service"
	"marinova/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	userRepo, closeStore, err := db.OpenUserStore(ctx, db.StoreOptions{
		Driver:        cfg.StoreDriver,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		Migrate:       true,
	})
	if err != nil {
		return err
	}
	defer closeStore()
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	} else {
		logger.Warn("SMTP_HOST not set, verification emails will not be delivered")
	}

	var (
		resendLimiter service.ResendLimiter
		denylist      service.TokenDenylist
		redisClient   *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory limiter and denylist", zap.Error(err))
		} else {
			resendLimiter = service.NewRedisResendLimiter(redisClient, 10*time.Minute, 3)
			denylist = service.NewRedisTokenDenylist(redisClient)
		}
		cancel()
		defer func() { _ = redisClient.Close() }()
	}

	jwtSvc := service.NewJWTServiceWithDenylist(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour, denylist)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger).
		WithImageModel(cfg.LLMImageModel)
	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY not set, AI endpoints will return 502")
	}
	weatherClient := weather.NewOpenMeteoClient(cfg.WeatherBaseURL)

	authSvc := service.NewAuthService(logger, userRepo, service.NewBcryptHasher(10), jwtSvc, emailSender, resendLimiter, service.AuthConfig{
		AllowedEmailDomain: cfg.AllowedEmailDomain,
		FreeCredits:        cfg.FreeCredits,
		FrontendURL:        cfg.FrontendURL,
	})
	usageSvc := service.NewUsageService(logger, userRepo)
	subsSvc := service.NewSubscriptionService(logger, userRepo)
	aiSvc := service.NewAIService(logger, usageSvc, llmClient, weatherClient)

	router := apihttp.NewRouter(logger, apihttp.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORSOrigins,
		AuthRPS:        cfg.AuthRateLimitRPS,
		AuthBurst:      cfg.AuthRateLimitBurst,
	}, jwtSvc, apihttp.Handlers{
		Auth:    apihttp.NewAuthHandler(logger, authSvc),
		Usage:   apihttp.NewUsageHandler(logger, usageSvc, subsSvc),
		AI:      apihttp.NewAIHandler(logger, aiSvc),
		Weather: apihttp.NewWeatherHandler(logger, weatherClient),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("store", cfg.StoreDriver),
			zap.String("api_prefix", cfg.APIPrefix),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
