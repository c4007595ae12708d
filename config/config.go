package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Gemini   GeminiConfig
	Ingest   IngestConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	// Driver is "pgx" or "sqlite".
	Driver     string
	SQLitePath string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	LockTTLSeconds int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	// SyncTopic carries CatalogSyncRequested events. Empty disables the listener.
	SyncTopic string
	GroupID   string
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

type IngestConfig struct {
	File            string
	Delimiter       string
	Workers         int
	EnhanceLimit    int
	PricePrecedence string
	// Schedule overrides the environment's default cron expression.
	Schedule string
	// Dir confines feed paths requested over the sync topic.
	Dir string
}

// CatalogConfig holds the fixed values stamped on every product document.
type CatalogConfig struct {
	DataSource   string
	SystemUser   string
	CompanyID    string
	DeploymentID string
	Currency     string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			GRPCPort: getEnv("GRPC_PORT", ":8083"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "pgx"),
			SQLitePath: getEnv("SQLITE_PATH", "catalog.db"),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_catalog"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Enabled:        getEnvBool("REDIS_ENABLED", false),
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			LockTTLSeconds: getEnvInt("RUN_LOCK_TTL_SECONDS", 1800),
		},
		Kafka: KafkaConfig{
			Enabled:   getEnvBool("KAFKA_ENABLED", false),
			Brokers:   getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:     getEnv("KAFKA_TOPIC_PRODUCTS", "products.events"),
			SyncTopic: getEnv("KAFKA_TOPIC_SYNC_REQUESTS", ""),
			GroupID:   getEnv("KAFKA_GROUP_CATALOG_SYNC", "catalog-sync"),
		},
		Elastic: ElasticsearchConfig{
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", false),
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			TimeoutSeconds: getEnvInt("ENHANCE_TIMEOUT_SECONDS", 30),
		},
		Ingest: IngestConfig{
			File:            getEnv("INGEST_FILE", "images40.txt"),
			Dir:             getEnv("INGEST_DIR", "."),
			Delimiter:       getEnv("INGEST_DELIMITER", "\t"),
			Workers:         getEnvInt("INGEST_WORKERS", 4),
			EnhanceLimit:    getEnvInt("INGEST_ENHANCE_LIMIT", 10),
			PricePrecedence: getEnv("INGEST_PRICE_PRECEDENCE", "feed"),
			Schedule:        getEnv("INGEST_SCHEDULE", ""),
		},
		Catalog: CatalogConfig{
			DataSource:   getEnv("CATALOG_DATA_SOURCE", "nao"),
			SystemUser:   getEnv("CATALOG_SYSTEM_USER", "IkFeiBarPUA3SNc3XiPY8yQl"),
			CompanyID:    getEnv("CATALOG_COMPANY_ID", "2yTnVUyG6H9yRX3K1qIFIiRz"),
			DeploymentID: getEnv("CATALOG_DEPLOYMENT_ID", "d8039"),
			Currency:     getEnv("CATALOG_CURRENCY", "USD"),
		},
	}
}

// IsProduction reports whether APP_ENV names a production environment.
func (c *Config) IsProduction() bool {
	return strings.Contains(strings.ToLower(c.Server.AppEnv), "prod")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
