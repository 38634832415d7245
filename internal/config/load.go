package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. TASKLANE_DATABASE_URL.
const EnvPrefix = "TASKLANE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first if present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 30)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 7*24*60)

	v.SetDefault("realtime.send_buffer_size", 32)
	v.SetDefault("realtime.ping_interval", 25*time.Second)
	v.SetDefault("realtime.pong_wait", 60*time.Second)
	v.SetDefault("realtime.write_wait", 10*time.Second)
	v.SetDefault("realtime.max_message_bytes", 16*1024)
	v.SetDefault("realtime.typing_expiry", 1500*time.Millisecond)
	v.SetDefault("realtime.max_comment_length", 1000)
	v.SetDefault("realtime.inbound_rate", 20.0)
	v.SetDefault("realtime.inbound_burst", 40)
}

// bindEnvs registers every key explicitly; AutomaticEnv alone does not make
// Unmarshal see keys that have no default or file value.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"server.port", "server.log_level", "server.environment",
		"server.allowed_origins", "server.shutdown_timeout_seconds",
		"database.url", "database.max_open_conns", "database.max_idle_conns",
		"auth.jwt_secret", "auth.bcrypt_cost",
		"auth.token_lifetime_minutes", "auth.refresh_token_lifetime_minutes",
		"realtime.send_buffer_size", "realtime.ping_interval", "realtime.pong_wait",
		"realtime.write_wait", "realtime.max_message_bytes", "realtime.typing_expiry",
		"realtime.max_comment_length", "realtime.inbound_rate", "realtime.inbound_burst",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
