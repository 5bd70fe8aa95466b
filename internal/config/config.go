package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"storemirror/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Remote     RemoteConfig     `yaml:"remote"`
	Sync       SyncConfig       `yaml:"sync"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig describes the commerce platform the mirror pulls from.
type RemoteConfig struct {
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	PageSize int    `yaml:"page_size"`
}

// SyncConfig holds the orchestration policy knobs.
type SyncConfig struct {
	// DailyThreshold is a local time of day ("21:00" or "21.00"); task
	// creation is gated until the clock passes it.
	DailyThreshold string `yaml:"daily_threshold"`
	PagesPerTask   int    `yaml:"pages_per_task"`
	// SelfBaseURL is the address the self-chaining pager uses to call the
	// service back for the next page.
	SelfBaseURL     string        `yaml:"self_base_url"`
	FollowUpDelay   time.Duration `yaml:"follow_up_delay"`
	StaleProcessing time.Duration `yaml:"stale_processing"`
	// ReturnsCollaboratorURL is where raw return records are forwarded;
	// empty disables the returns endpoint.
	ReturnsCollaboratorURL string `yaml:"returns_collaborator_url"`
}

type APIConfig struct {
	Port int `yaml:"port"`
	// OperatorToken and SchedulerToken are the two accepted bearer secrets:
	// one for humans, one for the external time trigger.
	OperatorToken  string             `yaml:"operator_token"`
	SchedulerToken string             `yaml:"scheduler_token"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
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

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере всё приходит через окружение
	_ = godotenv.Load(".env")

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
	if c.Remote.BaseURL == "" {
		return errors.New("remote base_url is required")
	}
	if c.Remote.Email == "" || c.Remote.Password == "" {
		return errors.New("remote credentials are required")
	}
	if c.API.OperatorToken == "" && c.API.SchedulerToken == "" {
		return errors.New("at least one API bearer token is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Remote.PageSize == 0 {
		c.Remote.PageSize = models.DefaultPageSize
	}
	if c.Sync.PagesPerTask == 0 {
		c.Sync.PagesPerTask = models.PagesPerTask
	}
	if c.Sync.DailyThreshold == "" {
		c.Sync.DailyThreshold = "21:00"
	}
	if c.Sync.FollowUpDelay == 0 {
		c.Sync.FollowUpDelay = models.DefaultFollowUpDelay
	}
	if c.Sync.StaleProcessing == 0 {
		c.Sync.StaleProcessing = models.DefaultStaleProcessing
	}
}
