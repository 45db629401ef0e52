package config

import (
	"errors"
	"fmt"
	"os"

	"bookwise/internal/models"

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
	Engine     EngineConfig     `yaml:"engine"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
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
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	HealthCheckPort   int    `yaml:"health_check_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// EngineConfig - параметры движка распределения ресурсов.
type EngineConfig struct {
	CompanyID          int64  `yaml:"company_id"`
	SnapshotTTLSeconds int    `yaml:"snapshot_ttl_seconds"`
	WorkerQueueSize    int    `yaml:"worker_queue_size"`
	SheetsSyncEnabled  bool   `yaml:"sheets_sync_enabled"`
	MaxSyncRetries     int    `yaml:"max_sync_retries"`
	ResourcesFile      string `yaml:"resources_file"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	CalendarSpreadSheetID string `yaml:"calendar_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	err := godotenv.Load(".env")
	if err != nil {
		return nil, err
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

	if c.Engine.CompanyID == 0 {
		return errors.New("engine company_id is required")
	}

	if c.Engine.SheetsSyncEnabled {
		if c.Google.GoogleCredentialsFile == "" {
			return errors.New("google credentials file is required when sheets sync is enabled")
		}
		if c.Google.CalendarSpreadSheetID == "" {
			return errors.New("calendar spreadsheet id is required when sheets sync is enabled")
		}
	}

	return nil
}

// ValidateResources проверяет каталог ресурсов из seed-файла.
func ValidateResources(resources []models.Resource) error {
	names := make(map[string]bool)
	for _, r := range resources {
		if r.Name == "" {
			return errors.New("resource with empty name in catalog")
		}
		if names[r.Name] {
			return fmt.Errorf("duplicate resource name found: %s", r.Name)
		}
		names[r.Name] = true

		switch r.Type {
		case models.ResourcePersonnel, models.ResourceTool, models.ResourceConsumable:
		default:
			return fmt.Errorf("resource '%s' has unknown type: %s", r.Name, r.Type)
		}
		if r.Quantity < 1 {
			return fmt.Errorf("resource '%s' has invalid quantity %d", r.Name, r.Quantity)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8091
	}

	// Engine defaults
	if c.Engine.SnapshotTTLSeconds == 0 {
		c.Engine.SnapshotTTLSeconds = models.DefaultSnapshotTTL
	}
	if c.Engine.WorkerQueueSize == 0 {
		c.Engine.WorkerQueueSize = models.WorkerQueueSize
	}
	if c.Engine.MaxSyncRetries == 0 {
		c.Engine.MaxSyncRetries = 5
	}

	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
