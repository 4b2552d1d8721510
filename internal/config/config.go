package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/auri-health/data-pipeline/internal/models"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Import    ImportConfig    `yaml:"import"`
	Summaries SummariesConfig `yaml:"summaries"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig points at the bucket holding raw export files.
type StorageConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
}

type ImportConfig struct {
	UserID   string `yaml:"user_id"`
	DeviceID string `yaml:"device_id"`
	Source   string `yaml:"source"`
	StateDir string `yaml:"state_dir"`
}

type SummariesConfig struct {
	InputDir   string `yaml:"input_dir"`
	ArchiveDir string `yaml:"archive_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix AURI_ and underscore-separated paths:
//
//	AURI_DB_HOST, AURI_DB_PORT, AURI_DB_NAME,
//	AURI_DB_USER, AURI_DB_PASSWORD, AURI_DB_SSLMODE,
//	AURI_STORAGE_URL, AURI_STORAGE_SERVICE_KEY, AURI_STORAGE_BUCKET,
//	AURI_IMPORT_USER_ID, AURI_IMPORT_DEVICE_ID, AURI_IMPORT_SOURCE,
//	AURI_IMPORT_STATE_DIR,
//	AURI_SUMMARIES_INPUT_DIR, AURI_SUMMARIES_ARCHIVE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AURI_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("AURI_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("AURI_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("AURI_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("AURI_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("AURI_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("AURI_STORAGE_URL"); v != "" {
		cfg.Storage.URL = v
	}
	if v := os.Getenv("AURI_STORAGE_SERVICE_KEY"); v != "" {
		cfg.Storage.ServiceKey = v
	}
	if v := os.Getenv("AURI_STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("AURI_IMPORT_USER_ID"); v != "" {
		cfg.Import.UserID = v
	}
	if v := os.Getenv("AURI_IMPORT_DEVICE_ID"); v != "" {
		cfg.Import.DeviceID = v
	}
	if v := os.Getenv("AURI_IMPORT_SOURCE"); v != "" {
		cfg.Import.Source = v
	}
	if v := os.Getenv("AURI_IMPORT_STATE_DIR"); v != "" {
		cfg.Import.StateDir = v
	}
	if v := os.Getenv("AURI_SUMMARIES_INPUT_DIR"); v != "" {
		cfg.Summaries.InputDir = v
	}
	if v := os.Getenv("AURI_SUMMARIES_ARCHIVE_DIR"); v != "" {
		cfg.Summaries.ArchiveDir = v
	}
}

func (c *Config) applyDefaults() {
	if c.Import.DeviceID == "" {
		c.Import.DeviceID = models.DefaultDeviceID
	}
	if c.Import.Source == "" {
		c.Import.Source = models.SourceGarmin
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "exports"
	}
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Storage.URL == "" {
		return fmt.Errorf("storage.url is required")
	}
	if c.Storage.ServiceKey == "" {
		return fmt.Errorf("storage.service_key is required")
	}
	if _, err := uuid.Parse(c.Import.DeviceID); err != nil {
		return fmt.Errorf("import.device_id must be a UUID: %w", err)
	}
	return nil
}
