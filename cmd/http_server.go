package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/auth"
	authPostgres "github.com/frahmantamala/supplier-portal/internal/auth/postgres"
	"github.com/frahmantamala/supplier-portal/internal/core/events"
	"github.com/frahmantamala/supplier-portal/internal/document"
	documentPostgres "github.com/frahmantamala/supplier-portal/internal/document/postgres"
	"github.com/frahmantamala/supplier-portal/internal/mailer"
	"github.com/frahmantamala/supplier-portal/internal/observability"
	"github.com/frahmantamala/supplier-portal/internal/storage"
	"github.com/frahmantamala/supplier-portal/internal/supplier"
	supplierPostgres "github.com/frahmantamala/supplier-portal/internal/supplier/postgres"
	"github.com/frahmantamala/supplier-portal/internal/transport/middleware"
	"github.com/frahmantamala/supplier-portal/internal/transport/rest"
	"github.com/frahmantamala/supplier-portal/internal/user"
	userPostgres "github.com/frahmantamala/supplier-portal/internal/user/postgres"
	"github.com/frahmantamala/supplier-portal/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

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
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	// let in-flight mail deliveries finish before the pools go away
	deps.EventBus.Wait()
	deps.close()
	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gdb,
		EventBus: events.NewEventBus(lg),
		Router:   chi.NewRouter(),
		Logger:   lg,
	}

	if config.RateLimit.Enabled {
		deps.Redis = initRedis(config.RateLimit)
	}

	if err := deps.wire(); err != nil {
		deps.close()
		return nil, err
	}
	return deps, nil
}

// wire builds services and handlers and registers every route.
func (d *Dependencies) wire() error {
	cfg := d.Config

	m, err := mailer.New(mailer.Config{
		Driver:   cfg.Mail.Driver,
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		Secure:   cfg.Mail.Secure,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	mailer.SubscribePasswordReset(d.EventBus, m, d.Logger)

	authService := newAuthService(cfg, d.Gorm, d.EventBus, d.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.Bootstrap.Enabled() {
		if _, err := authService.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	docStorage, err := newDocumentStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize document storage: %w", err)
	}
	documentService := document.NewService(documentPostgres.NewRepository(d.Gorm), docStorage, cfg.Storage.MaxUploadBytes(), d.Logger)

	deps := rest.RouterDeps{
		AuthHandler:     auth.NewHandler(authService),
		Roles:           auth.NewRoleAuthorization(d.Logger),
		UserHandler:     user.NewHandler(user.NewService(userPostgres.NewRepository(d.DB))),
		SupplierHandler: supplier.NewHandler(supplier.NewService(supplierPostgres.NewRepository(d.Gorm), d.Logger)),
		DocumentHandler: document.NewHandler(documentService, cfg.Storage.MaxUploadBytes()),
		HealthChecks:    map[string]rest.Checker{"postgres": rest.DatabaseCheck(d.DB)},
		AllowedOrigins:  middleware.SplitOrigins(cfg.Server.AllowedOrigins),
		OpenAPIFile:     "./api/openapi.yml",
		TrustProxy:      cfg.Server.TrustProxy,
	}

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
		authService.SetMetrics(metrics)
		deps.Metrics = metrics
		deps.MetricsHandler = observability.Handler(registry)
		deps.MetricsPath = cfg.Observability.Metrics.Path
	}

	if cfg.RateLimit.Enabled {
		limitCfg := middleware.RateLimitConfig{
			Prefix:         cfg.RateLimit.Prefix,
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: cfg.RateLimit.RefillInterval,
			TTL:            cfg.RateLimit.TTL,
		}
		if d.Redis != nil {
			limiter := middleware.NewRateLimiter(limitCfg, d.Redis, d.Logger)
			if metrics != nil {
				limiter.SetObserver(metrics)
			}
			deps.RateLimiter = limiter
			deps.HealthChecks["redis"] = rest.RedisCheck(d.Redis)
		} else {
			limiter := middleware.NewLocalRateLimiter(limitCfg, d.Logger)
			if metrics != nil {
				limiter.SetObserver(metrics)
			}
			deps.RateLimiter = limiter
		}
	}

	rest.RegisterAllRoutes(d.Router, deps, d.Logger)
	return nil
}

func newDocumentStorage(ctx context.Context, cfg internal.StorageConfig) (document.Storage, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Storage(ctx, storage.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			DisableTLS:     cfg.S3.DisableTLS,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	}
	return storage.NewLocalStorage(cfg.UploadDir)
}

func newAuthService(cfg *internal.Config, gdb *gorm.DB, publisher events.Publisher, lg *slog.Logger) *auth.Service {
	hasher := auth.NewArgon2Hasher(cfg.Security.Argon2.MemoryKiB, cfg.Security.Argon2.Iterations, cfg.Security.Argon2.Parallelism)
	tokens := auth.NewJWTTokenIssuer(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)

	return auth.NewService(authPostgres.NewRepository(gdb), tokens, hasher, publisher, auth.ServiceConfig{
		RefreshTokenTTLDays: cfg.Security.RefreshTokenTTLDays,
		ResetTokenTTL:       cfg.Security.ResetTokenDuration,
		AppURL:              cfg.App.URL,
	}, lg)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}

// initGorm layers gorm over the existing pool so both share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
}

// initRedis returns nil when Redis cannot be reached; rate limiting then
// falls back to per-process counters instead of blocking startup.
func initRedis(cfg internal.RateLimitConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.LoggerWrapper().Warn("redis unreachable, using in-process rate limiting", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
