package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/doara/doara/application/usecase"
	"github.com/doara/doara/infrastructure/config"
	"github.com/doara/doara/infrastructure/persistence/postgres"
	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
	rpchandler "github.com/doara/doara/infrastructure/rpc/handler"
	"github.com/doara/doara/infrastructure/service/audit"
	"github.com/doara/doara/infrastructure/service/lockout"
	"github.com/doara/doara/infrastructure/service/logger"
	"github.com/doara/doara/infrastructure/service/password"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateUserService(); err != nil {
		log.Fatalf("Invalid user service configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "user-service",
	})
	structuredLogger.Info(ctx, "User service starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		structuredLogger.Error(ctx, "Failed to ping Redis", err, nil)
		log.Fatalf("Failed to ping Redis: %v", err)
	}

	userRepo := postgres.NewUserRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	recorder := audit.NewRecorder(auditRepo, structuredLogger)
	lockoutEngine := lockout.NewEngine(userRepo, recorder, structuredLogger)
	passwordService := password.NewBcryptPasswordService(password.DefaultCost)

	userUseCase := usecase.NewUserUseCase(userRepo, passwordService, recorder, structuredLogger)

	server := rpc.NewServer(redisClient, commands.UserServiceQueue, cfg.RPCPrefetch, structuredLogger)
	rpchandler.NewUserHandler(userUseCase, userRepo, lockoutEngine).Register(server)
	rpchandler.NewAuditHandler(recorder).Register(server)

	runCtx, stop := context.WithCancel(ctx)
	if err := server.Start(runCtx, commands.UserService()); err != nil {
		stop()
		log.Fatalf("Failed to start RPC server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down user service...", nil)
	stop()
	server.Wait()
	structuredLogger.Info(ctx, "User service exited", nil)
}
