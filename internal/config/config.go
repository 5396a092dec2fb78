package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL      string
	SocketURL   string
	RedisAddr   string
	MetricsAddr string
	LogLevel    string

	SessionPath string
	SessionKey  string
	JWTSecret   string

	HTTPTimeout      time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CacheTTL         time.Duration

	AMQPURL        string
	RelayExchange  string
	TelegramToken  string
	TelegramChatID int64

	// TelegramAPIEndpoint overrides the Bot API URL format, e.g. for a
	// self-hosted bot API server. Empty means api.telegram.org.
	TelegramAPIEndpoint string
}

// NewConfig reads the environment, after loading a .env file when one exists.
func NewConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		APIURL:      getEnv("STOREDESK_API_URL", "http://localhost:8080"),
		SocketURL:   getEnv("STOREDESK_SOCKET_URL", "http://localhost:8080"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SessionPath: getEnv("STOREDESK_SESSION_PATH", defaultSessionPath()),
		SessionKey:  getEnv("STOREDESK_SESSION_KEY", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		HTTPTimeout:      getDuration("HTTP_TIMEOUT", 10*time.Second),
		RetryAttempts:    getInt("RETRY_ATTEMPTS", 1),
		RetryDelay:       getDuration("RETRY_DELAY", 500*time.Millisecond),
		BreakerThreshold: getInt("BREAKER_THRESHOLD", 5),
		BreakerCooldown:  getDuration("BREAKER_COOLDOWN", 10*time.Second),
		CacheTTL:         getDuration("CACHE_TTL", 30*time.Second),

		AMQPURL:        getEnv("AMQP_URL", ""),
		RelayExchange:  getEnv("RELAY_EXCHANGE", "orders"),
		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: getInt64("TELEGRAM_CHAT_ID", 0),

		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storedesk-session.json"
	}
	return filepath.Join(dir, "storedesk", "session.json")
}
