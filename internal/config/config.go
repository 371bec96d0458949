package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"shareit/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	Exports    ExportConfig     `yaml:"exports"`
	Users      []models.User    `yaml:"users"`
	Items      []models.Item    `yaml:"items"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP          APIHTTPConfig       `yaml:"http"`
	GRPC          APIGRPCConfig       `yaml:"grpc"`
	Auth          APIAuthConfig       `yaml:"auth"`
	RateLimit     APIRateLimitConfig  `yaml:"rate_limit"`
	UserRateLimit UserRateLimitConfig `yaml:"user_rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// APIRateLimitConfig throttles each API key in-process.
type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// UserRateLimitConfig limits requests per X-Sharer-User-Id across instances.
type UserRateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	Requests      int  `yaml:"requests"`
	WindowSeconds int  `yaml:"window_seconds"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type OutboxConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	UseRedis     bool          `yaml:"use_redis"`
	RedisQueue   string        `yaml:"redis_queue"`
	RedisDLQ     string        `yaml:"redis_dead_letter"`
}

type ExportConfig struct {
	SheetName string `yaml:"sheet_name"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.Enabled && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("kafka.topic is required when kafka is enabled")
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.api_keys must not be empty when auth is enabled")
	}

	if err := ValidateUsers(c.Users); err != nil {
		return err
	}
	return ValidateItems(c.Items, c.Users)
}

func ValidateUsers(users []models.User) error {
	userIDs := make(map[int64]bool)
	for _, user := range users {
		if user.ID <= 0 {
			return fmt.Errorf("user '%s' has invalid ID %d", user.Name, user.ID)
		}
		if userIDs[user.ID] {
			return fmt.Errorf("duplicate user ID found: %d", user.ID)
		}
		userIDs[user.ID] = true
	}
	return nil
}

// ValidateItems checks item ids and that every owner is a declared user.
func ValidateItems(items []models.Item, users []models.User) error {
	owners := make(map[int64]bool, len(users))
	for _, u := range users {
		owners[u.ID] = true
	}

	itemIDs := make(map[int64]bool)
	for _, item := range items {
		if item.ID <= 0 {
			return fmt.Errorf("item '%s' has invalid ID %d", item.Name, item.ID)
		}
		if itemIDs[item.ID] {
			return fmt.Errorf("duplicate item ID found: %d", item.ID)
		}
		if !owners[item.OwnerID] {
			return fmt.Errorf("item %d references unknown owner %d", item.ID, item.OwnerID)
		}
		itemIDs[item.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "shareit"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.UserRateLimit.Requests == 0 {
		c.API.UserRateLimit.Requests = models.DefaultRateLimitRequests
	}
	if c.API.UserRateLimit.WindowSeconds == 0 {
		c.API.UserRateLimit.WindowSeconds = models.DefaultRateLimitWindow
	}

	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = models.DefaultBackupRetentionDays
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}

	// Outbox defaults
	if c.Outbox.PollInterval == 0 {
		c.Outbox.PollInterval = 5 * time.Second
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Outbox.BaseDelay == 0 {
		c.Outbox.BaseDelay = 2 * time.Second
	}
	if c.Outbox.MaxDelay == 0 {
		c.Outbox.MaxDelay = time.Minute
	}
	if c.Outbox.RedisQueue == "" {
		c.Outbox.RedisQueue = "shareit:outbox"
	}
	if c.Outbox.RedisDLQ == "" {
		c.Outbox.RedisDLQ = "shareit:outbox:dead"
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "shareit.bookings"
	}
	if c.Exports.SheetName == "" {
		c.Exports.SheetName = "Bookings"
	}
}
