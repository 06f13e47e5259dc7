package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/doara/doara/application/usecase"
	"github.com/doara/doara/infrastructure/config"
	"github.com/doara/doara/infrastructure/directory"
	gatewayhttp "github.com/doara/doara/infrastructure/http"
	"github.com/doara/doara/infrastructure/http/handler"
	"github.com/doara/doara/infrastructure/http/middleware"
	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
	"github.com/doara/doara/infrastructure/service/jwt"
	"github.com/doara/doara/infrastructure/service/logger"
	"github.com/doara/doara/infrastructure/service/password"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateGateway(); err != nil {
		log.Fatalf("Invalid gateway configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "gateway",
	})
	structuredLogger.Info(ctx, "Gateway starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		structuredLogger.Error(ctx, "Invalid Redis URL", err, nil)
		log.Fatalf("Invalid Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		structuredLogger.Error(ctx, "Failed to ping Redis", err, nil)
		log.Fatalf("Failed to ping Redis: %v", err)
	}

	rpcClient := rpc.NewClient(redisClient, commands.UserServiceQueue, cfg.RPCCallTimeout, structuredLogger)
	directoryClient := directory.NewClient(rpcClient, cfg.RPCQueryTimeout, structuredLogger)

	tokenService, err := jwt.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize JWT service", err, nil)
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(password.DefaultCost)

	authUseCase := usecase.NewAuthUseCase(
		directoryClient,
		directoryClient,
		directoryClient,
		tokenService,
		passwordService,
		structuredLogger,
		cfg.AccessTokenTTL,
	)
	auditUseCase := usecase.NewAuditUseCase(directoryClient)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	authHandler := handler.NewAuthHandler(authUseCase)
	auditHandler := handler.NewAuditHandler(auditUseCase)

	server := gatewayhttp.NewServer(gatewayhttp.ServerConfig{
		Host:         cfg.ServerHost,
		Port:         cfg.ServerPort,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authHandler, auditHandler, authMiddleware, structuredLogger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"host": cfg.ServerHost,
				"port": cfg.ServerPort,
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down gateway...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Gateway exited", nil)
}
