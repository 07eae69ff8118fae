package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"relcalc/internal/auth"
	"relcalc/internal/calc"
	"relcalc/internal/config"
	"relcalc/internal/logging"
	"relcalc/internal/middleware"
	"relcalc/internal/queue"
	"relcalc/internal/quota"
	"relcalc/internal/storage"
	"relcalc/internal/utils"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Registry *calc.Registry
	Users    auth.UserStore
	Gate     *quota.Gate
	Audit    logging.Sink
	Logger   *utils.Logger

	// UsageQueue feeds the database audit pipeline. Nil in standalone mode,
	// where no database is attached.
	UsageQueue queue.Queue

	// Owned resources, closed on shutdown.
	DB          *storage.DB
	Redis       *redis.Client
	UsageWorker *storage.UsageLogWorker
	AuditLogger *logging.AuditLogger
	AuditSink   *logging.S3Sink

	cfg *config.Config
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logLevel := utils.ParseLogLevel(cfg.LogLevel, utils.Info)
	deps := &Dependencies{
		Registry: calc.DefaultRegistry(),
		Logger:   utils.NewLogger("httpapi", logLevel),
		cfg:      cfg,
	}

	if cfg.Standalone {
		// Everything in memory: no Postgres, no Redis, counters and
		// accounts vanish on restart.
		deps.Users = auth.NewInMemoryUserStore()
		deps.Gate = quota.NewGate(quota.NewMemoryCounterStore(), cfg.FreeDailyLimit, utils.NewLogger("quota", logLevel))
	} else {
		db, err := storage.NewDB(storage.DBConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,

			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,

			UserCacheSize: cfg.Database.UserCacheSize,
			UserCacheTTL:  cfg.Database.UserCacheTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.DB = db
		deps.Users = db.NewUserRepository()

		redisClient, err := storage.NewRedisClient(storage.RedisConfig{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.Redis = redisClient
		deps.Gate = quota.NewGate(quota.NewRedisCounterStore(redisClient), cfg.FreeDailyLimit, utils.NewLogger("quota", logLevel))

		// Usage log pipeline: Redis list → batch worker → Postgres.
		usageQueueCfg := queue.DefaultConfig("usage")
		usageQueueCfg.BatchSize = cfg.UsageQueue.BatchSize
		usageQueueCfg.BatchTimeout = cfg.UsageQueue.BatchTimeout
		usageQueueCfg.MaxRetries = cfg.UsageQueue.MaxRetries
		usageQueueCfg.RetryBackoff = cfg.UsageQueue.RetryBackoff

		usageQueue := queue.NewRedisQueue(redisClient, usageQueueCfg.QueueName)
		usageDLQ := queue.NewRedisDeadLetterQueue(redisClient, usageQueueCfg.QueueName)

		deps.UsageQueue = usageQueue
		deps.UsageWorker = storage.NewUsageLogWorker(usageQueue, usageDLQ, db, usageQueueCfg)
		deps.UsageWorker.Start(context.Background())
	}

	// Audit trail: local JSONL files, optionally archived to S3.
	deps.Audit = logging.NewNoopSink()
	if cfg.AuditSink.Enabled && cfg.AuditSink.S3Bucket != "" {
		writer, err := logging.NewS3Writer(
			context.Background(),
			cfg.AuditSink.S3Bucket,
			cfg.AuditSink.S3Region,
			cfg.AuditSink.S3Prefix,
			cfg.AuditSink.Instance,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 audit sink: %w", err)
		}
		deps.AuditSink = logging.NewS3Sink(writer, cfg.AuditSink.FlushSize, cfg.AuditSink.BufferSize, cfg.AuditSink.FlushInterval)
		deps.Audit = deps.AuditSink
	} else if cfg.AuditLogger.Enabled {
		auditLogger, err := logging.NewAuditLogger(
			cfg.AuditLogger.FilePathTemplate,
			cfg.AuditLogger.MaxSize,
			cfg.AuditLogger.MaxFiles,
			cfg.AuditLogger.BufferSize,
			cfg.AuditLogger.FlushInterval,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		deps.AuditLogger = auditLogger
		deps.Audit = auditLogger
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	return mux, deps, nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	identity := middleware.IdentityMiddleware(cfg.JWTSecret)

	// Calculator endpoints. All resolve the caller; only calculate consumes
	// quota.
	mux.Handle("GET /api/calculators", identity(http.HandlerFunc(deps.handleListCalculators)))
	mux.Handle("GET /api/calculators/{id}/info", identity(http.HandlerFunc(deps.handleCalculatorInfo)))
	mux.Handle("POST /api/calculators/calculate/{id}", identity(http.HandlerFunc(deps.handleCalculate)))
	mux.Handle("GET /api/calculators/calculate/{id}/example", identity(http.HandlerFunc(deps.handleCalculatorExample)))

	// Usage endpoint.
	mux.Handle("GET /api/usage", identity(http.HandlerFunc(deps.handleUsage)))

	// Authentication endpoints.
	authHandler := NewAuthHandler(deps.Users, cfg.JWTSecret)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/me", identity(middleware.RequireUser(http.HandlerFunc(authHandler.Me))))
	mux.Handle("POST /api/auth/upgrade", identity(middleware.RequireUser(http.HandlerFunc(authHandler.Upgrade))))

	// Health check endpoint - public.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Shutdown releases resources owned by the HTTP layer: drains the usage
// worker and audit sinks, then closes storage connections.
func (d *Dependencies) Shutdown() {
	if d.UsageWorker != nil {
		_ = d.UsageWorker.Stop()
	}
	if d.AuditLogger != nil {
		d.AuditLogger.Shutdown()
	}
	if d.AuditSink != nil {
		d.AuditSink.Shutdown()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
