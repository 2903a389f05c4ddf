package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"behaviorgate/internal/validation"
)

type Config struct {
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ServerPort   string
	ServerHost   string
	TrustProxy   bool
	MaxBodyBytes int64

	ForwardURL            string
	ForwardTimeoutSeconds int

	Argon2Time       uint32
	Argon2Memory     uint32
	Argon2Threads    uint8
	Argon2KeyLength  uint32
	Argon2SaltLength int
	AdminKeyHash     string

	PolicyMinAverageSpeed    float64
	PolicyMaxAverageSpeed    float64
	PolicyMaxPeakSpeed       float64
	PolicyMinKeyPressEntropy float64
	PolicyMinTimeOnPage      float64
	PolicyMinIdleTime        float64
	PolicyFinalMinIdleTime   float64

	APIRateLimitRequests   int
	APIRateLimitWindowMins int
	APICORSOrigins         []string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string

	DebugMode     bool
	EnableMetrics bool
}

func Load() (*Config, error) {
	godotenv.Load("config.env")

	defaults := validation.DefaultPolicy()

	cfg := &Config{
		DBHost:     getEnvString("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnvString("DB_NAME", "behaviorgate"),
		DBUser:     getEnvString("DB_USER", "postgres"),
		DBPassword: getEnvString("DB_PASSWORD", ""),
		DBSSLMode:  getEnvString("DB_SSL_MODE", "disable"),

		ServerPort:   getEnvString("SERVER_PORT", "8080"),
		ServerHost:   getEnvString("SERVER_HOST", "localhost"),
		TrustProxy:   getEnvBool("TRUST_PROXY", false),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		ForwardURL:            getEnvString("FORWARD_URL", ""),
		ForwardTimeoutSeconds: getEnvInt("FORWARD_TIMEOUT_SECONDS", 10),

		Argon2Time:       uint32(getEnvInt("ARGON2_TIME", 3)),
		Argon2Memory:     uint32(getEnvInt("ARGON2_MEMORY", 65536)),
		Argon2Threads:    uint8(getEnvInt("ARGON2_THREADS", 1)),
		Argon2KeyLength:  uint32(getEnvInt("ARGON2_KEY_LENGTH", 32)),
		Argon2SaltLength: getEnvInt("ARGON2_SALT_LENGTH", 16),
		AdminKeyHash:     getEnvString("ADMIN_KEY_HASH", ""),

		PolicyMinAverageSpeed:    getEnvFloat("POLICY_MIN_AVERAGE_SPEED", defaults.MinAverageSpeed),
		PolicyMaxAverageSpeed:    getEnvFloat("POLICY_MAX_AVERAGE_SPEED", defaults.MaxAverageSpeed),
		PolicyMaxPeakSpeed:       getEnvFloat("POLICY_MAX_PEAK_SPEED", defaults.MaxPeakSpeed),
		PolicyMinKeyPressEntropy: getEnvFloat("POLICY_MIN_KEY_PRESS_ENTROPY", defaults.MinKeyPressEntropy),
		PolicyMinTimeOnPage:      getEnvFloat("POLICY_MIN_TIME_ON_PAGE", defaults.MinTimeOnPage),
		PolicyMinIdleTime:        getEnvFloat("POLICY_MIN_IDLE_TIME", defaults.MinIdleTime),
		PolicyFinalMinIdleTime:   getEnvFloat("POLICY_FINAL_MIN_IDLE_TIME", defaults.FinalMinIdleTime),

		APIRateLimitRequests:   getEnvInt("API_RATE_LIMIT_REQUESTS", 60),
		APIRateLimitWindowMins: getEnvInt("API_RATE_LIMIT_WINDOW_MINUTES", 1),
		APICORSOrigins:         getEnvStringSlice("API_CORS_ORIGINS", []string{"*"}),

		KafkaEnabled: getEnvBool("KAFKA_ENABLED", false),
		KafkaBrokers: getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnvString("KAFKA_TOPIC", "verification-logs"),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "json"),

		DebugMode:     getEnvBool("DEBUG_MODE", false),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.APIRateLimitRequests <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_REQUESTS must be positive, got %d", c.APIRateLimitRequests)
	}
	if c.APIRateLimitWindowMins <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_WINDOW_MINUTES must be positive, got %d", c.APIRateLimitWindowMins)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.ForwardTimeoutSeconds <= 0 {
		return fmt.Errorf("FORWARD_TIMEOUT_SECONDS must be positive, got %d", c.ForwardTimeoutSeconds)
	}
	if c.PolicyMinAverageSpeed > c.PolicyMaxAverageSpeed {
		return fmt.Errorf("POLICY_MIN_AVERAGE_SPEED (%g) exceeds POLICY_MAX_AVERAGE_SPEED (%g)",
			c.PolicyMinAverageSpeed, c.PolicyMaxAverageSpeed)
	}
	if c.KafkaEnabled && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		return fmt.Errorf("KAFKA_BROKERS and KAFKA_TOPIC are required when KAFKA_ENABLED is set")
	}
	return nil
}

func (c *Config) Policy() validation.Policy {
	return validation.Policy{
		MinAverageSpeed:    c.PolicyMinAverageSpeed,
		MaxAverageSpeed:    c.PolicyMaxAverageSpeed,
		MaxPeakSpeed:       c.PolicyMaxPeakSpeed,
		MinKeyPressEntropy: c.PolicyMinKeyPressEntropy,
		MinTimeOnPage:      c.PolicyMinTimeOnPage,
		MinIdleTime:        c.PolicyMinIdleTime,
		FinalMinIdleTime:   c.PolicyFinalMinIdleTime,
	}
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func (c *Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
