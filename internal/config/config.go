package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database. DatabaseURL wins over the individual DB_* fields when set.
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis config
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret  string // HS256 secret shared with the session provider
	ServiceKey string // required by the scheduled sweep endpoint

	// Price refresh
	PriceFetchTimeout time.Duration
	PriceUserAgent    string

	// Per-user requests per minute on /v1 routes
	RateLimitPerMinute int

	// AWS
	AWSRegion   string
	SQSQueueURL string // activity queue consumed by the achievement worker
	SNSTopicARN string // push fan-out for newly created notifications

	// Lifetime of price-drop notifications; achievement notifications never expire
	PriceDropTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:    "localhost",
		DBPort:    5432,
		DBUser:    "solebox",
		DBName:    "solebox",
		DBSSLMode: "disable",

		// Redis defaults
		RedisHost: "localhost",
		RedisPort: 6379,

		PriceFetchTimeout:  10 * time.Second,
		PriceUserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		RateLimitPerMinute: 120,

		AWSRegion:    "us-east-1",
		PriceDropTTL: 30 * 24 * time.Hour,
	}

	var err error

	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if cfg.DBPort, err = intEnv("DB_PORT", cfg.DBPort); err != nil {
		return nil, err
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if cfg.RedisPort, err = intEnv("REDIS_PORT", cfg.RedisPort); err != nil {
		return nil, err
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if cfg.RedisDB, err = intEnv("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}

	// Auth
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.ServiceKey = os.Getenv("SERVICE_KEY")

	// Price refresh
	if cfg.PriceFetchTimeout, err = durationEnv("PRICE_FETCH_TIMEOUT", cfg.PriceFetchTimeout); err != nil {
		return nil, err
	}
	if cfg.PriceFetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid PRICE_FETCH_TIMEOUT: must be positive")
	}

	if ua := os.Getenv("PRICE_USER_AGENT"); ua != "" {
		cfg.PriceUserAgent = ua
	}

	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return nil, err
	}

	// AWS
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}
	cfg.SQSQueueURL = os.Getenv("SQS_QUEUE_URL")
	cfg.SNSTopicARN = os.Getenv("SNS_TOPIC_ARN")

	if cfg.PriceDropTTL, err = durationEnv("PRICE_DROP_TTL", cfg.PriceDropTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings the gateway cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ServiceKey == "" {
		return fmt.Errorf("SERVICE_KEY is required")
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// durationEnv accepts Go durations ("15s") or a bare number of seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
