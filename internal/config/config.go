package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/ini.v1"
)

// ConfigFileEnv names the environment variable pointing at an optional INI file
const ConfigFileEnv = "FFTDETECT_CONFIG"

// Config holds all configuration for the detection server
type Config struct {
	// Server configuration
	HTTPPort int    `env:"PORT" envDefault:"3000"`
	GRPCPort int    `env:"GRPC_PORT" envDefault:"0"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Log files
	Logs LogConfig

	// Redis configuration (stream forwarding)
	Redis RedisConfig

	// Timeouts
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LogConfig holds log directory and rotation settings
type LogConfig struct {
	Dir        string `env:"LOG_DIR" envDefault:"logs"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"1"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// RedisConfig holds Redis connection configuration.
// An empty Addr disables stream forwarding.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	Stream       string `env:"REDIS_STREAM" envDefault:"fftdetect:detections"`
	StreamMaxLen int64  `env:"REDIS_STREAM_MAXLEN" envDefault:"10000"`

	// Forwarding happens off the request path
	ForwardWorkers int `env:"REDIS_FORWARD_WORKERS" envDefault:"2"`
	ForwardQueue   int `env:"REDIS_FORWARD_QUEUE" envDefault:"1024"`

	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Load reads configuration from the environment, layered over the INI file
// named by FFTDETECT_CONFIG when it is set
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(ConfigFileEnv), os.Environ())
}

// LoadFrom builds a Config from an optional INI file and a list of
// KEY=VALUE environment entries. Environment entries win over file keys.
func LoadFrom(file string, environ []string) (*Config, error) {
	vars := make(map[string]string)

	if file != "" {
		fileVars, err := readFile(file)
		if err != nil {
			return nil, err
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readFile loads the default section of an INI file. Keys are matched
// case-insensitively and mapped to their environment variable names.
func readFile(file string) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
	}

	vars := make(map[string]string)
	for _, key := range f.Section("").Keys() {
		vars[strings.ToUpper(key.Name())] = key.String()
	}
	return vars, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("gRPC port %d collides with HTTP port", c.GRPCPort)
	}

	// Validate log config
	if c.Logs.Dir == "" {
		return fmt.Errorf("log directory is required")
	}
	if c.Logs.MaxSizeMB < 1 {
		return fmt.Errorf("log max size must be at least 1 MB")
	}
	if c.Logs.MaxBackups < 0 {
		return fmt.Errorf("log max backups cannot be negative")
	}

	// Validate Redis config
	if c.Redis.Addr != "" && c.Redis.Stream == "" {
		return fmt.Errorf("redis stream name is required when REDIS_ADDR is set")
	}
	if c.Redis.ForwardWorkers < 1 || c.Redis.ForwardQueue < 1 {
		return fmt.Errorf("redis forwarding needs at least one worker and one queue slot")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address, or "" when gRPC is disabled
func (c *Config) GetGRPCAddr() string {
	if c.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// RedisEnabled reports whether detections are forwarded to Redis
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
