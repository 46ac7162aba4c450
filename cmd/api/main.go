package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/creativeplayground/accounts/internal/activity"
	"github.com/creativeplayground/accounts/internal/auth"
	"github.com/creativeplayground/accounts/internal/config"
	"github.com/creativeplayground/accounts/internal/database"
	"github.com/creativeplayground/accounts/internal/email"
	httpServer "github.com/creativeplayground/accounts/internal/http"
	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/ratelimit"
	"github.com/creativeplayground/accounts/internal/user"
)

// @title           Accounts API
// @version         1.0
// @description     Cookie-based account service with email verification, remember-me, and rate limiting.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_backend", cfg.Auth.TokenBackend,
	)

	// Initialize database connection
	db, err := database.Open(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	rememberRepo := auth.NewRememberTokenRepository(db)
	passwordResetRepo := auth.NewPasswordResetRepository(redisClient)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow)

	// Initialize the remember-me cookie codec
	rememberCodec, err := auth.NewCodec(cfg.Auth.RememberKey)
	if err != nil {
		return fmt.Errorf("failed to initialize remember-me codec: %w", err)
	}

	// Initialize the session token backend
	tokenService, err := initTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	sessions := auth.NewSessionManager(tokenService, cfg.Auth.CookieSecure, cfg.Auth.SessionDuration)

	// Initialize email service
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	// Initialize the authentication engine
	engine := auth.NewEngine(
		userRepo,
		rememberRepo,
		passwordResetRepo,
		rememberCodec,
		rateLimiter,
		emailService,
		logger,
		cfg.Auth.RememberTTL,
	)

	// Initialize activity recorder
	activityRecorder := activity.NewRecorder(redisClient)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(engine, sessions, rememberCodec, rateLimiter, cfg.Auth.CookieSecure)
	authMiddleware := auth.NewMiddleware(sessions, engine)
	userHandler := user.NewHandler(userRepo, activityRecorder)

	// Initialize router
	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, userHandler, activityRecorder, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initTokenService selects the session token implementation. Both backends
// satisfy the same interface; the choice is an operational one.
func initTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenBackend {
	case "jwt":
		svc, err := auth.NewJWTService(cfg.SessionKey)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		svc, err := auth.NewPasetoService(cfg.SessionKey)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
