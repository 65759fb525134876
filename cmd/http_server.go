package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/auth"
	authpg "github.com/frahmantamala/access-management/internal/auth/postgres"
	authredis "github.com/frahmantamala/access-management/internal/auth/redis"
	"github.com/frahmantamala/access-management/internal/authz"
	"github.com/frahmantamala/access-management/internal/feature"
	featurepg "github.com/frahmantamala/access-management/internal/feature/postgres"
	"github.com/frahmantamala/access-management/internal/permission"
	permissionpg "github.com/frahmantamala/access-management/internal/permission/postgres"
	"github.com/frahmantamala/access-management/internal/role"
	rolepg "github.com/frahmantamala/access-management/internal/role/postgres"
	"github.com/frahmantamala/access-management/internal/transport/rest"
	"github.com/frahmantamala/access-management/internal/user"
	userpg "github.com/frahmantamala/access-management/internal/user/postgres"
	"github.com/frahmantamala/access-management/internal/userrole"
	userrolepg "github.com/frahmantamala/access-management/internal/userrole/postgres"
	"github.com/frahmantamala/access-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	DB              *sqlx.DB
	Redis           *redis.Client
	Router          *chi.Mux
	Logger          *slog.Logger
	UserRoleService *userrole.Service
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	// Assignment expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runExpirySweep(sweepCtx, deps.UserRoleService, deps.Config.Security.SweepInterval, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
		if err := deps.Redis.Close(); err != nil {
			slog.Error("Redis close error", "error", err)
		}
	case err := <-serverErrChan:
		stopSweep()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func runExpirySweep(ctx context.Context, svc *userrole.Service, interval time.Duration, lg *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireOverdue(); err != nil {
				lg.Error("assignment expiry sweep failed", "error", err)
			}
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// Repositories
	featureRepo := featurepg.NewFeatureRepository(gormDB)
	permissionRepo := permissionpg.NewPermissionRepository(gormDB)
	roleRepo := rolepg.NewRoleRepository(gormDB)
	userRoleRepo := userrolepg.NewUserRoleRepository(gormDB)
	userRepo := userpg.NewUserRepository(gormDB)
	credentialsRepo := authpg.NewCredentialsRepository(gormDB)

	// Resolver sits behind every mutating service as the cache invalidator
	resolver := authz.NewResolver(roleRepo, userRoleRepo, userRepo, lg)

	// Services
	featureService := feature.NewService(featureRepo, resolver, lg)
	permissionService := permission.NewService(permissionRepo, resolver, lg)
	roleService := role.NewService(roleRepo, resolver, lg)
	userRoleService := userrole.NewService(userRoleRepo, roleRepo, resolver, lg)
	userService := user.NewService(userRepo, resolver, config.Security.BCryptCost, lg)

	tokenStore := authredis.NewTokenStore(redisClient)
	tokenManager := auth.NewTokenManager(
		config.Security.JWTSecret,
		config.Security.JWTIssuer,
		config.Security.AccessTokenTTL,
		config.Security.RefreshTokenTTL,
		tokenStore,
		lg,
	)
	authService := auth.NewService(credentialsRepo, resolver, tokenManager, lg)

	// Handlers
	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authService),
		RBAC:       auth.NewRBACMiddleware(),
		Feature:    feature.NewHandler(featureService),
		Permission: permission.NewHandler(permissionService),
		Role:       role.NewHandler(roleService),
		UserRole:   userrole.NewHandler(userRoleService),
		User:       user.NewHandler(userService),
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, redisClient, handlers, config.Server.AllowedOrigins, lg)

	return &Dependencies{
		Config:          config,
		DB:              db,
		Redis:           redisClient,
		Router:          router,
		Logger:          lg,
		UserRoleService: userRoleService,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
