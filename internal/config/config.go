package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort              = 3000
	defaultEnv               = "development"
	defaultDriver            = DriverMongo
	defaultMongoURI          = "mongodb://127.0.0.1:27017"
	defaultMongoName         = "qalam_news"
	defaultDBTimeout         = 10 * time.Second
	defaultTokenTTL          = 24 * time.Hour
	defaultMaxFailedAttempts = 5
	defaultLockoutWindow     = 15 * time.Minute
	defaultAttemptRetention  = 30 * 24 * time.Hour
	defaultBackupDir         = "backups"
	defaultLogDir            = "logs"
	defaultJWTSecret         = "qalam-news-secret-change-me"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	Auth           AuthConfig     `yaml:"auth"`
	Bootstrap      BootstrapAdmin `yaml:"bootstrap"`
	Backup         BackupConfig   `yaml:"backup"`
	Paths          PathsConfig    `yaml:"paths"`
}

type DatabaseConfig struct {
	Driver  string        `yaml:"driver"` // mongo | memory
	URI     string        `yaml:"uri"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig is optional; an empty URL disables rate limiting and keeps the
// token denylist in process.
type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	MaxFailedAttempts int           `yaml:"max_failed_attempts"` // 0 disables lockout
	LockoutWindow     time.Duration `yaml:"lockout_window"`
	AttemptRetention  time.Duration `yaml:"attempt_retention"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
}

// BootstrapAdmin creates the first admin account on an empty user collection.
type BootstrapAdmin struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (b BootstrapAdmin) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

type BackupConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"` // 0 disables scheduled backups
	S3       S3Options     `yaml:"s3"`
}

type S3Options struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

func (o S3Options) Enabled() bool {
	return o.Bucket != "" && o.Region != "" && o.AccessKeyID != "" && o.SecretAccessKey != ""
}

type PathsConfig struct {
	Logs string `yaml:"logs"`
}

// Load reads the YAML file at configPath, applies defaults, and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content on top of the defaults.
func Parse(content []byte) (*AppConfig, error) {
	cfg := Default()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used for any key the file omits.
func Default() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseConfig{
			Driver:  defaultDriver,
			URI:     defaultMongoURI,
			Name:    defaultMongoName,
			Timeout: defaultDBTimeout,
		},
		Auth: AuthConfig{
			JWTSecret:         defaultJWTSecret,
			TokenTTL:          defaultTokenTTL,
			MaxFailedAttempts: defaultMaxFailedAttempts,
			LockoutWindow:     defaultLockoutWindow,
			AttemptRetention:  defaultAttemptRetention,
		},
		Backup: BackupConfig{Dir: defaultBackupDir},
		Paths:  PathsConfig{Logs: defaultLogDir},
	}
}

func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" || c.Database.Name == "" {
			return fmt.Errorf("database.uri and database.name are required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q, expected mongo or memory", c.Database.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Auth.MaxFailedAttempts < 0 {
		return fmt.Errorf("auth.max_failed_attempts must be >= 0")
	}
	if c.Auth.MaxFailedAttempts > 0 && c.Auth.LockoutWindow <= 0 {
		return fmt.Errorf("auth.lockout_window must be positive when lockout is enabled")
	}
	if !c.IsDev() && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("auth.jwt_secret must be set in production")
	}
	if c.Backup.Interval < 0 {
		return fmt.Errorf("backup.interval must be >= 0")
	}
	return nil
}

func normalize(c *AppConfig) {
	c.Env = normalizeEnv(c.Env)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDriver
	}
	if c.Database.Timeout <= 0 {
		c.Database.Timeout = defaultDBTimeout
	}
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	if c.Auth.AttemptRetention <= 0 {
		c.Auth.AttemptRetention = defaultAttemptRetention
	}
	c.AllowedOrigins = normalizeOrigins(c.AllowedOrigins)
	if strings.TrimSpace(c.Backup.Dir) == "" {
		c.Backup.Dir = defaultBackupDir
	}
	if strings.TrimSpace(c.Paths.Logs) == "" {
		c.Paths.Logs = defaultLogDir
	}
	c.Bootstrap.Username = strings.TrimSpace(c.Bootstrap.Username)
	c.Bootstrap.Email = strings.ToLower(strings.TrimSpace(c.Bootstrap.Email))
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "prod" {
		return "production"
	}
	if env == "" || env == "dev" {
		return defaultEnv
	}
	return env
}

func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// Addr returns the listen address.
func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }
