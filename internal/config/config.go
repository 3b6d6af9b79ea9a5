package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Simulator SimulatorConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	Host           string
	AllowedOrigins []string
}

// SimulatorConfig holds price simulation configuration
type SimulatorConfig struct {
	Interval time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the trigger archive
type DatabaseConfig struct {
	Enabled       bool
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string

	// RetentionMaxAge of zero keeps archived trigger records forever
	RetentionMaxAge   time.Duration
	RetentionInterval time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TriggerTopic string
	CommandTopic string
	GroupID      string
}

// RedisConfig holds Redis price cache configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PriceKey string
	Channel  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigins: getEnvList("SERVER_ALLOWED_ORIGINS", "*"),
		},
		Simulator: SimulatorConfig{
			Interval: getEnvDuration("SIMULATOR_INTERVAL", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:       getEnvBool("DB_ENABLED", false),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "investments"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "db/migrations"),

			RetentionMaxAge:   getEnvDurationOrZero("DB_RETENTION_MAX_AGE", 30*24*time.Hour),
			RetentionInterval: getEnvDuration("DB_RETENTION_INTERVAL", time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvList("KAFKA_BROKERS", "localhost:9092"),
			TriggerTopic: getEnv("KAFKA_TRIGGER_TOPIC", "investment-triggers"),
			CommandTopic: getEnv("KAFKA_COMMAND_TOPIC", "investment-operations"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "investment-simulator"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PriceKey: getEnv("REDIS_PRICE_KEY", "investment:prices"),
			Channel:  getEnv("REDIS_PRICE_CHANNEL", "investment:price-updates"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

// Addr returns the host:port the HTTP server listens on
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvDurationOrZero(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
