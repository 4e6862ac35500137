package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finsync/internal/config"
	"finsync/internal/db"
	apihttp "finsync/internal/http"
	"finsync/internal/repository"
	"finsync/internal/service"
)

type repositories struct {
	users        repository.UserRepository
	links        repository.AccountLinkRepository
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var repos repositories
	if cfg.InMemory() {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		store := repository.NewMemoryStore()
		repos = repositories{store.Users(), store.Links(), store.Accounts(), store.Transactions()}
	} else {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		repos = repositories{
			users:        repository.NewPgUserRepository(pool),
			links:        repository.NewPgAccountLinkRepository(pool),
			accounts:     repository.NewPgAccountRepository(pool),
			transactions: repository.NewPgTransactionRepository(pool),
		}
	}

	window, maxAttempts := cfg.LoginRateLimit()
	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, window, maxAttempts)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewMemoryLoginRateLimiter(window, maxAttempts)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	userSvc := service.NewUserService(logger, repos.users, loginLimiter)
	accountSvc := service.NewAccountService(logger, repos.accounts, repos.links)
	transactionSvc := service.NewTransactionService(logger, repos.transactions)

	if cfg.DemoUserEmail != "" {
		seedDemoUser(ctx, logger, cfg, userSvc, repos)
	}

	router := apihttp.NewRouter(logger, jwtSvc,
		apihttp.NewAuthHandler(logger, userSvc, jwtSvc, cfg.IdentityClientID),
		apihttp.NewFinanceHandler(logger, accountSvc, transactionSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.Bool("in_memory", cfg.InMemory()))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// seedDemoUser crea el usuario de demo con cuentas y transacciones si todavía no existe.
func seedDemoUser(ctx context.Context, logger *zap.Logger, cfg *config.ServerConfig, users *service.UserService, repos repositories) {
	user, err := users.CreateUser(ctx, service.CreateUserInput{
		Email:       cfg.DemoUserEmail,
		DisplayName: "Demo",
		Password:    cfg.DemoUserPassword,
	})
	if errors.Is(err, service.ErrUserExists) {
		logger.Info("demo user already present", zap.String("email", cfg.DemoUserEmail))
		return
	}
	if err != nil {
		logger.Warn("demo user not created", zap.Error(err))
		return
	}
	if err := service.SeedDemoData(ctx, repos.accounts, repos.transactions, user.ID, time.Now()); err != nil {
		logger.Warn("demo data not seeded", zap.Error(err))
		return
	}
	logger.Info("demo user seeded", zap.String("email", user.Email))
}
