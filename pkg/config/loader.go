package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("ocpp.port", "OCPP_PORT", "APP_OCPP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file is fine; env vars and defaults apply
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "ocpp-central")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("ocpp.port", 9000)
	viper.SetDefault("ocpp.heartbeat_interval", 300)
	viper.SetDefault("ocpp.command_timeout", 30*time.Second)
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("heartbeat.check_interval", time.Minute)
	viper.SetDefault("heartbeat.offline_threshold", 3*time.Minute)
	viper.SetDefault("heartbeat.unavailable_threshold", 10*time.Minute)
	viper.SetDefault("reservations.expiry_interval", time.Minute)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("circuit_breaker.enabled", true)
}
