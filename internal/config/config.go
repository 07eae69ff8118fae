package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the calculator API server.
type Config struct {
	HTTPPort  string
	JWTSecret []byte
	LogLevel  string

	// Standalone runs without Postgres and Redis: in-memory user store and
	// quota counters, no usage log pipeline. Meant for local development.
	Standalone bool

	FreeDailyLimit int64

	Database    DatabaseConfig
	Redis       RedisConfig
	UsageQueue  UsageQueueConfig
	AuditLogger AuditLoggerConfig
	AuditSink   AuditSinkConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	UserCacheSize int
	UserCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// UsageQueueConfig holds usage log pipeline settings
type UsageQueueConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// AuditLoggerConfig holds local JSONL audit trail settings
type AuditLoggerConfig struct {
	Enabled          bool
	FilePathTemplate string
	MaxSize          int64
	MaxFiles         int
	BufferSize       int
	FlushInterval    time.Duration
}

// AuditSinkConfig holds configuration for the S3-based audit archive
type AuditSinkConfig struct {
	Enabled       bool
	BufferSize    int           // In-memory queue size
	FlushSize     int           // Flush to S3 after this many records
	FlushInterval time.Duration // Flush to S3 after this duration
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	Instance      string // Instance identifier for multi-instance deployments
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		LogLevel:  getEnvString("LOG_LEVEL", "INFO"),

		Standalone:     getEnvBool("STANDALONE", false),
		FreeDailyLimit: getEnvInt64("FREE_DAILY_LIMIT", 10),

		Database: DatabaseConfig{
			Host:     getEnvString("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			Database: getEnvString("DB_NAME", "relcalc"),
			User:     getEnvString("DB_USER", "postgres"),
			Password: getEnvString("DB_PASSWORD", ""),
			SSLMode:  getEnvString("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

			UserCacheSize: getEnvInt("CACHE_USER_SIZE", 1000),
			UserCacheTTL:  getEnvDuration("CACHE_USER_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:  getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		UsageQueue: UsageQueueConfig{
			BatchSize:    getEnvInt("USAGE_QUEUE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("USAGE_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("USAGE_QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("USAGE_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
		AuditLogger: AuditLoggerConfig{
			Enabled:          getEnvBool("AUDIT_LOGGER_ENABLED", true),
			FilePathTemplate: getEnvString("AUDIT_LOGGER_FILE_PATH_TEMPLATE", "/var/log/relcalc/audit-%s.jsonl"),
			MaxSize:          getEnvInt64("AUDIT_LOGGER_MAX_SIZE", 10_485_760), // default 10 MB
			MaxFiles:         getEnvInt("AUDIT_LOGGER_MAX_FILES", 5),
			BufferSize:       getEnvInt("AUDIT_LOGGER_BUFFER_SIZE", 100),
			FlushInterval:    getEnvDuration("AUDIT_LOGGER_FLUSH_INTERVAL", 60*time.Second),
		},
		AuditSink: AuditSinkConfig{
			Enabled:       getEnvBool("AUDIT_SINK_ENABLED", false),
			BufferSize:    getEnvInt("AUDIT_SINK_BUFFER_SIZE", 10000),
			FlushSize:     getEnvInt("AUDIT_SINK_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("AUDIT_SINK_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("AUDIT_SINK_S3_BUCKET", ""),
			S3Region:      getEnvString("AUDIT_SINK_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("AUDIT_SINK_S3_PREFIX", "audit/"),
			Instance:      getEnvString("INSTANCE_NAME", "relcalc-0"),
		},
	}

	return cfg, nil
}
