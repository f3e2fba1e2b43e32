package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Exchange bulletin sources
	SHFE  ExchangeConfig
	DCE   ExchangeConfig
	CZCE  ExchangeConfig
	CFFEX ExchangeConfig

	// Batch collection / main series
	Collector CollectorConfig

	// Exchange-local UTC offset in hours (China Standard Time)
	UTCOffsetHours int

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ExchangeConfig holds the endpoint and request limits for one exchange.
// MaxInFlight caps simultaneous requests; RequestsPerSec <= 0 disables pacing.
type ExchangeConfig struct {
	BaseURL        string
	MaxInFlight    int
	RequestsPerSec int
	Timeout        time.Duration
}

// CollectorConfig holds batch and scheduler settings
type CollectorConfig struct {
	SelectWorkers int
	LookbackDays  int
	Schedule      string // cron expression with seconds
	// NightTrade lists "EXCHANGE:product" entries for products that open
	// with the night session
	NightTrade []string
}

const defaultNightTrade = "SHFE:cu,SHFE:al,SHFE:zn,SHFE:pb,SHFE:ni,SHFE:sn,SHFE:au,SHFE:ag," +
	"SHFE:rb,SHFE:hc,SHFE:bu,SHFE:ru,SHFE:fu,SHFE:sp," +
	"DCE:a,DCE:b,DCE:m,DCE:y,DCE:p,DCE:c,DCE:cs,DCE:j,DCE:jm,DCE:i,DCE:l,DCE:v,DCE:pp,DCE:eg," +
	"CZCE:CF,CZCE:SR,CZCE:TA,CZCE:MA,CZCE:FG,CZCE:RM,CZCE:OI,CZCE:ZC"

// Location returns the exchange-local time zone.
func (c *Config) Location() *time.Location {
	return time.FixedZone("CST", c.UTCOffsetHours*3600)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		SHFE:  loadExchange("SHFE", "http://www.shfe.com.cn", 15),
		DCE:   loadExchange("DCE", "http://www.dce.com.cn", 5),
		CZCE:  loadExchange("CZCE", "http://www.czce.com.cn", 15),
		CFFEX: loadExchange("CFFEX", "http://www.cffex.com.cn", 15),

		Collector: CollectorConfig{
			SelectWorkers: getEnvAsInt("SELECT_WORKERS", 8),
			LookbackDays:  getEnvAsInt("LOOKBACK_DAYS", 3),
			Schedule:      getEnv("COLLECT_SCHEDULE", "0 30 17 * * MON-FRI"),
			NightTrade:    getEnvAsList("NIGHT_TRADE_PRODUCTS", defaultNightTrade),
		},

		UTCOffsetHours: getEnvAsInt("UTC_OFFSET_HOURS", 8),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadExchange(name, defaultURL string, defaultInFlight int) ExchangeConfig {
	return ExchangeConfig{
		BaseURL:        strings.TrimRight(getEnv(name+"_BASE_URL", defaultURL), "/"),
		MaxInFlight:    getEnvAsInt(name+"_MAX_IN_FLIGHT", defaultInFlight),
		RequestsPerSec: getEnvAsInt(name+"_RPS", 0),
		Timeout:        getEnvAsDuration(name+"_TIMEOUT", "30s"),
	}
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	for name, ex := range map[string]ExchangeConfig{
		"SHFE": c.SHFE, "DCE": c.DCE, "CZCE": c.CZCE, "CFFEX": c.CFFEX,
	} {
		if ex.MaxInFlight <= 0 {
			return fmt.Errorf("%s_MAX_IN_FLIGHT must be positive", name)
		}
	}

	if c.Collector.SelectWorkers <= 0 {
		return fmt.Errorf("SELECT_WORKERS must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
