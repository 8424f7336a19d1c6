// Package config provides YAML-based configuration management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jd-analyzer/backend/internal/parser"
	"github.com/jd-analyzer/backend/internal/upload"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `yaml:"data_dir"`
	UploadsDirectory string `yaml:"uploads_dir"`
}

// IngestionConfig contains the upload policy
type IngestionConfig struct {
	MaxFileSize         string   `yaml:"max_file_size"`
	MaxBatchFiles       int      `yaml:"max_batch_files"`
	MaxBatchSize        string   `yaml:"max_batch_size"`
	SupportedFormats    []string `yaml:"supported_formats"`
	LossyTextFallback   bool     `yaml:"lossy_text_fallback"`
	JobRetentionMinutes int      `yaml:"job_retention_minutes"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RequestLogging bool   `yaml:"request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8000,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "110MiB",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
		},
		Ingestion: IngestionConfig{
			MaxFileSize:         "10MiB",
			MaxBatchFiles:       upload.DefaultMaxBatchCount,
			MaxBatchSize:        "100MiB",
			SupportedFormats:    parser.DefaultFormats(),
			LossyTextFallback:   true,
			JobRetentionMinutes: 30,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if the file does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# JD ingestion service configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	if size := os.Getenv("JD_MAX_FILE_SIZE"); size != "" {
		c.Ingestion.MaxFileSize = size
	}
	if n := os.Getenv("JD_MAX_BATCH_FILES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			c.Ingestion.MaxBatchFiles = v
		}
	}
	if size := os.Getenv("JD_MAX_BATCH_SIZE"); size != "" {
		c.Ingestion.MaxBatchSize = size
	}
	if formats := os.Getenv("JD_SUPPORTED_FORMATS"); formats != "" {
		var exts []string
		for _, f := range strings.Split(formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				exts = append(exts, f)
			}
		}
		c.Ingestion.SupportedFormats = exts
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
}

// Limits converts the ingestion section into an upload policy.
func (c *AppConfig) Limits() (upload.Limits, error) {
	fileBytes, err := parseSize("max_file_size", c.Ingestion.MaxFileSize)
	if err != nil {
		return upload.Limits{}, err
	}
	batchBytes, err := parseSize("max_batch_size", c.Ingestion.MaxBatchSize)
	if err != nil {
		return upload.Limits{}, err
	}

	limits := upload.Limits{
		MaxFileBytes:  fileBytes,
		MaxBatchCount: c.Ingestion.MaxBatchFiles,
		MaxBatchBytes: batchBytes,
	}
	if err := limits.Validate(); err != nil {
		return upload.Limits{}, err
	}
	return limits, nil
}

// Registry builds the format registry for the configured formats.
func (c *AppConfig) Registry() (*parser.Registry, error) {
	return parser.NewRegistryFor(c.Ingestion.SupportedFormats,
		parser.WithLossyTextFallback(c.Ingestion.LossyTextFallback))
}

// BodyLimit returns the request body limit in bytes.
func (c *AppConfig) BodyLimit() (int64, error) {
	return parseSize("body_limit", c.Server.BodyLimit)
}

// Validate fails on settings the service cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if _, err := c.Limits(); err != nil {
		return err
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if _, err := c.BodyLimit(); err != nil {
		return err
	}
	return nil
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func parseSize(field, value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return int64(n), nil
}
