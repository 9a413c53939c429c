package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Bitrix    BitrixConfig
	Reward    RewardConfig
	Scheduler SchedulerConfig
}

// AppConfig содержит общие настройки приложения
type AppConfig struct {
	Env      string
	LogLevel string
	Port     int
	// BaseURL — внешний адрес портала, используется в коде встраивания и QR
	BaseURL string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MigrationPath string
}

// AuthConfig содержит настройки выдачи токенов
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// Учетные данные первичного администратора, создается при старте
	AdminEmail    string
	AdminPassword string
}

// BitrixConfig содержит настройки интеграции с сервисом b24-transfer-lead
type BitrixConfig struct {
	ServiceURL string
	APIKey     string
	Timeout    time.Duration
	// SyncConcurrency — ограничение одновременных обращений к CRM в батче
	SyncConcurrency int
}

// RewardConfig содержит настройки вознаграждения по умолчанию
type RewardConfig struct {
	// DefaultPercentage применяется, пока админ не задал значение в reward_settings
	DefaultPercentage decimal.Decimal
}

// SchedulerConfig содержит настройки периодической синхронизации
type SchedulerConfig struct {
	SyncEnabled  bool
	SyncInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения и .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("APP_PORT", 8080)
	cfg.App.BaseURL = getEnvDefault("APP_BASE_URL", "http://localhost:8080")

	// Database
	cfg.Database.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getEnvIntDefault("DB_PORT", 5432)
	cfg.Database.User = os.Getenv("DB_USER")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.SSLMode = getEnvDefault("DB_SSL_MODE", "disable")
	cfg.Database.MigrationPath = getEnvDefault("MIGRATION_PATH", "scripts/migrations")

	// Auth
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.AccessTokenTTL = getEnvDurationDefault("ACCESS_TOKEN_TTL", 30*time.Minute)
	cfg.Auth.RefreshTokenTTL = getEnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.Auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	cfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	// Bitrix
	cfg.Bitrix.ServiceURL = getEnvDefault("B24_SERVICE_URL", "http://b24-service:7860")
	cfg.Bitrix.APIKey = os.Getenv("B24_INTERNAL_API_KEY")
	cfg.Bitrix.Timeout = getEnvDurationDefault("B24_TIMEOUT", 15*time.Second)
	cfg.Bitrix.SyncConcurrency = getEnvIntDefault("B24_SYNC_CONCURRENCY", 4)

	// Reward
	cfg.Reward.DefaultPercentage = getEnvDecimalDefault("DEFAULT_REWARD_PERCENTAGE", decimal.NewFromInt(10))

	// Scheduler
	cfg.Scheduler.SyncEnabled = getEnvBoolDefault("SYNC_ENABLED", true)
	cfg.Scheduler.SyncInterval = getEnvDurationDefault("SYNC_INTERVAL", time.Hour)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Database.User == "" {
		return fmt.Errorf("DB_USER не установлен")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("DB_NAME не установлен")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET не установлен")
	}
	if cfg.Bitrix.SyncConcurrency < 1 {
		return fmt.Errorf("B24_SYNC_CONCURRENCY должен быть не меньше 1")
	}
	pct := cfg.Reward.DefaultPercentage
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("DEFAULT_REWARD_PERCENTAGE должен быть в диапазоне [0, 100]")
	}
	return nil
}

// GetDSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetURL возвращает подключение в формате URL, используется goose
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimalDefault(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
