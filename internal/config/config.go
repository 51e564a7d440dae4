package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Backend string `yaml:"backend"` // postgres or memory
}

// AWSConfig holds object storage configuration
type AWSConfig struct {
	Region    string        `yaml:"region"`
	S3Bucket  string        `yaml:"s3_bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"` // S3-compatible endpoint, empty for AWS
	URLTTL    time.Duration `yaml:"url_ttl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// SearchConfig bounds the study spot search
type SearchConfig struct {
	DefaultRadiusKm float64       `yaml:"default_radius_km"`
	MaxRadiusKm     float64       `yaml:"max_radius_km"`
	MaxCandidates   int           `yaml:"max_candidates"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, applies defaults and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Path returns the config file location, overridable with STUDYSPOT_CONFIG
func Path() string {
	if p := os.Getenv("STUDYSPOT_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}
	if c.AWS.URLTTL == 0 {
		c.AWS.URLTTL = time.Hour
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Search.DefaultRadiusKm == 0 {
		c.Search.DefaultRadiusKm = 1.0
	}
	if c.Search.MaxRadiusKm == 0 {
		c.Search.MaxRadiusKm = 100
	}
	if c.Search.MaxCandidates == 0 {
		c.Search.MaxCandidates = 1000
	}
	if c.Search.QueryTimeout == 0 {
		c.Search.QueryTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Search.DefaultRadiusKm <= 0 || c.Search.DefaultRadiusKm > c.Search.MaxRadiusKm {
		return fmt.Errorf("search.default_radius_km must be in (0, max_radius_km]")
	}
	if c.Search.MaxCandidates < 0 {
		return fmt.Errorf("search.max_candidates must not be negative")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
