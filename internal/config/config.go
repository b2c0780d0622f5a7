// Package config 配置
package config

import (
	"os"
	"strconv"
	"time"
)

// Config 服务配置
type Config struct {
	ServiceName string
	HTTPPort    int

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisAddr     string
	RedisPassword string

	// 命令队列
	CommandQueueKey string
	PublishTimeout  time.Duration

	// 凭证表，"secret:role,secret:role" 形式
	AuthBearerTokens string
	AuthAPIKeys      string

	// Telegram webhook 共享密钥
	TelegramWebhookSecret string
}

// Load 加载配置
func Load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "lumina-gateway"),
		HTTPPort:    getEnvInt("HTTP_PORT", 8090),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "lumina"),
		DBPassword: getEnv("DB_PASSWORD", "lumina123"),
		DBName:     getEnv("DB_NAME", "lumina"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CommandQueueKey: getEnv("COMMAND_QUEUE_KEY", "lumina:commands"),
		PublishTimeout:  time.Duration(getEnvInt("PUBLISH_TIMEOUT_MS", 5000)) * time.Millisecond,

		AuthBearerTokens: getEnv("AUTH_BEARER_TOKENS", ""),
		AuthAPIKeys:      getEnv("AUTH_API_KEYS", ""),

		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
	}
}

// DSN 返回数据库连接字符串
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + strconv.Itoa(c.DBPort) +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
