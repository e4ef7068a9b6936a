package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisAuthDB   int    `mapstructure:"REDIS_AUTH_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Device restriction.
	MaxAccountsPerDevice int    `mapstructure:"MAX_ACCOUNTS_PER_DEVICE"`
	DeviceCheckTimeoutMs int    `mapstructure:"DEVICE_CHECK_TIMEOUT_MS"`
	CookieSecure         string `mapstructure:"COOKIE_SECURE"` // "auto", "true" or "false"

	// Chat.
	ChatHistoryLimit       int  `mapstructure:"CHAT_HISTORY_LIMIT"`
	ChatMaxMessageLength   int  `mapstructure:"CHAT_MAX_MESSAGE_LENGTH"`
	ChatMessageRatePerMin  int  `mapstructure:"CHAT_MESSAGE_RATE_PER_MIN"`
	ChatRetentionDays      int  `mapstructure:"CHAT_RETENTION_DAYS"`
	ChatPubSubEnabled      bool `mapstructure:"CHAT_PUBSUB_ENABLED"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "subzero")
	viper.SetDefault("MAX_ACCOUNTS_PER_DEVICE", 1)
	viper.SetDefault("DEVICE_CHECK_TIMEOUT_MS", 5000)
	viper.SetDefault("COOKIE_SECURE", "auto")
	viper.SetDefault("CHAT_HISTORY_LIMIT", 50)
	viper.SetDefault("CHAT_MAX_MESSAGE_LENGTH", 2000)
	viper.SetDefault("CHAT_MESSAGE_RATE_PER_MIN", 30)
	viper.SetDefault("CHAT_RETENTION_DAYS", 30)
	viper.SetDefault("CHAT_PUBSUB_ENABLED", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// DeviceCheckTimeout is the upper bound for a device restriction lookup.
func DeviceCheckTimeout() time.Duration {
	if AppConfig.DeviceCheckTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(AppConfig.DeviceCheckTimeoutMs) * time.Millisecond
}
