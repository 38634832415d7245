package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port"        validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
	Environment string `mapstructure:"environment" validate:"required,oneof=development staging production test"`

	// AllowedOrigins lists the Origin header values accepted on WebSocket upgrades.
	// An empty list only accepts same-host origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lt=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,lt=525600"`
}

// RealtimeConfig tunes the live comment channel.
type RealtimeConfig struct {
	SendBufferSize   int           `mapstructure:"send_buffer_size"   validate:"gte=1"`
	PingInterval     time.Duration `mapstructure:"ping_interval"      validate:"required"`
	PongWait         time.Duration `mapstructure:"pong_wait"          validate:"required,gtfield=PingInterval"`
	WriteWait        time.Duration `mapstructure:"write_wait"         validate:"required"`
	MaxMessageBytes  int64         `mapstructure:"max_message_bytes"  validate:"gte=512"`
	TypingExpiry     time.Duration `mapstructure:"typing_expiry"      validate:"required"`
	MaxCommentLength int           `mapstructure:"max_comment_length" validate:"gte=1"`
	InboundRate      float64       `mapstructure:"inbound_rate"       validate:"gt=0"`
	InboundBurst     int           `mapstructure:"inbound_burst"      validate:"gte=1"`
}
