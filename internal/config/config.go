package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the track API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string        `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  LogFileConfig `yaml:"file"`
}

// LogFileConfig enables a rotating log file next to stdout. Empty Path disables it.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig holds write-route authentication settings.
type AuthConfig struct {
	APIKeys   []string `yaml:"api_keys"`
	JWTSecret string   `yaml:"jwt_secret"`
	JWTIssuer string   `yaml:"jwt_issuer"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
	WriteRateLimit  int      `yaml:"write_rate_limit_per_min"` // 0 disables
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string      `yaml:"addrs"`
	Password         string        `yaml:"password"`
	ReadinessTimeout int           `yaml:"readiness_timeout_sec"`
	Breaker          BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds the store circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"` // 0 disables
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// SearchConfig holds location search tunables.
type SearchConfig struct {
	MinResults     int     `yaml:"min_results"`
	MaxResults     int     `yaml:"max_results"`
	MaxRadiusKm    float64 `yaml:"max_radius_km"`
	StartPrecision int     `yaml:"start_precision"`
	ScanLimit      int     `yaml:"scan_limit"`
	SlowQueryMs    int     `yaml:"slow_query_ms"` // 0 disables slow-query logs
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Breaker.OpenTimeoutSec <= 0 {
		c.Database.Breaker.OpenTimeoutSec = 30
	}
	if c.Database.Breaker.HalfOpenRequests == 0 {
		c.Database.Breaker.HalfOpenRequests = 1
	}
	if c.Search.MinResults <= 0 {
		c.Search.MinResults = 10
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 200
	}
	if c.Search.MaxRadiusKm <= 0 {
		c.Search.MaxRadiusKm = 500
	}
	if c.Search.StartPrecision <= 0 {
		c.Search.StartPrecision = 4
	}
	if c.Search.ScanLimit <= 0 {
		c.Search.ScanLimit = 5000
	}
	if c.Logging.File.Path != "" {
		if c.Logging.File.MaxSizeMB <= 0 {
			c.Logging.File.MaxSizeMB = 100
		}
		if c.Logging.File.MaxBackups <= 0 {
			c.Logging.File.MaxBackups = 5
		}
		if c.Logging.File.MaxAgeDays <= 0 {
			c.Logging.File.MaxAgeDays = 30
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.WriteRateLimit < 0 {
		return fmt.Errorf("http.write_rate_limit_per_min must not be negative, got %d", c.HTTP.WriteRateLimit)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		// both speak RESP and FT.*
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.MinResults > c.Search.MaxResults {
		return fmt.Errorf("search.min_results (%d) must not exceed search.max_results (%d)",
			c.Search.MinResults, c.Search.MaxResults)
	}
	if c.Search.StartPrecision > 12 {
		return fmt.Errorf("search.start_precision must be between 1 and 12, got %d", c.Search.StartPrecision)
	}
	if c.Auth.JWTIssuer != "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_issuer requires auth.jwt_secret")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
