package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/omsorg/care-api/internal/email"
	"github.com/omsorg/care-api/internal/repository/postgres"
	"github.com/omsorg/care-api/internal/scheduler"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  postgres.Config  `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Push      PushConfig       `mapstructure:"push"`
	Email     email.Config     `mapstructure:"email"`
	Scheduler scheduler.Config `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port" envconfig:"SERVER_PORT"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type PushConfig struct {
	ServerKey string `mapstructure:"server_key" envconfig:"FCM_SERVER_KEY"`
	Endpoint  string `mapstructure:"endpoint"`
}

// LoadConfig reads config.yml and lets environment variables override the
// secrets and connection settings.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}
