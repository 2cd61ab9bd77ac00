// Package config loads the Logiflow configuration from logiflow.yml and
// the environment. Environment variables use the LOGIFLOW_ prefix with
// underscores for nesting (LOGIFLOW_SERVER_PORT, LOGIFLOW_DATABASE_URL).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Authz    AuthzConfig    `mapstructure:"authz"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	APIPrefix string `mapstructure:"api_prefix"`
	GraphiQL  bool   `mapstructure:"graphiql"`
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig holds the Redis connection settings. An empty Addr selects
// the in-process memory cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls response caching.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds the JWT settings.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	DefaultRole string `mapstructure:"default_role"`
}

// AuthzConfig holds the capability policy settings. An empty PolicyFile
// uses the embedded policy.
type AuthzConfig struct {
	PolicyFile string `mapstructure:"policy_file"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads logiflow.yml (or .yaml) from the working directory plus the
// environment. A missing file is fine; missing required values are not.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads the configuration from the given directory.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Every key gets a default, including empty ones: viper only maps
	// environment variables onto keys it already knows about.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.graphiql", false)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.default_role", "viewer")
	v.SetDefault("authz.policy_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetConfigName("logiflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("LOGIFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validate checks structural constraints that would otherwise surface as
// confusing runtime failures.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when caching is enabled")
	}
	return nil
}
