package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Agent      AgentConfig      `mapstructure:"agent"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type CacheConfig struct {
	LocalSize       int `mapstructure:"local_size"`
	LocalTTLMinutes int `mapstructure:"local_ttl_minutes"`
	RedisTTLMinutes int `mapstructure:"redis_ttl_minutes"`
}

type RateLimitConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Requests             int64  `mapstructure:"requests"`
	Window               string `mapstructure:"window"`
	MinRetryAfterSeconds int    `mapstructure:"min_retry_after_seconds"`
}

type ResilienceConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
	RetryDelayMs   int `mapstructure:"retry_delay_ms"`
}

type AgentConfig struct {
	Endpoint           string `mapstructure:"endpoint"`
	BreakerMaxFailures uint32 `mapstructure:"breaker_max_failures"`
	BreakerTimeoutSecs int    `mapstructure:"breaker_timeout_seconds"`
}

var globalConfig Config

func Load(configPath string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaultValues()

	return nil
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.Environment == "" {
		globalConfig.Server.Environment = "dev"
	}
	if globalConfig.Cache.LocalSize == 0 {
		globalConfig.Cache.LocalSize = 1024
	}
	if globalConfig.Cache.LocalTTLMinutes == 0 {
		globalConfig.Cache.LocalTTLMinutes = 10
	}
	if globalConfig.Cache.RedisTTLMinutes == 0 {
		globalConfig.Cache.RedisTTLMinutes = 60
	}
	if globalConfig.RateLimit.Requests == 0 {
		globalConfig.RateLimit.Requests = 60
	}
	if globalConfig.RateLimit.Window == "" {
		globalConfig.RateLimit.Window = "1m"
	}
	if globalConfig.RateLimit.MinRetryAfterSeconds == 0 {
		globalConfig.RateLimit.MinRetryAfterSeconds = 1
	}
	if globalConfig.Resilience.TimeoutSeconds == 0 {
		globalConfig.Resilience.TimeoutSeconds = 30
	}
	if globalConfig.Resilience.RetryDelayMs == 0 {
		globalConfig.Resilience.RetryDelayMs = 500
	}
	if globalConfig.Agent.BreakerMaxFailures == 0 {
		globalConfig.Agent.BreakerMaxFailures = 5
	}
	if globalConfig.Agent.BreakerTimeoutSecs == 0 {
		globalConfig.Agent.BreakerTimeoutSecs = 30
	}
}

func GetConfig() *Config {
	return &globalConfig
}

// RateLimitWindow parses the configured window, falling back to one minute
// when the value is missing or malformed.
func (c *Config) RateLimitWindow() time.Duration {
	window, err := time.ParseDuration(c.RateLimit.Window)
	if err != nil || window <= 0 {
		return time.Minute
	}
	return window
}
