package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host      string          `mapstructure:"host"`
	Port      string          `mapstructure:"port"`
	Endpoint  string          `mapstructure:"endpoint"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
}

type WebsocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PushInterval   time.Duration `mapstructure:"push_interval"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// NotifyConfig points at the external identity & notification service.
type NotifyConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SettlementConfig controls the payment gateway client and its retry policy.
type SettlementConfig struct {
	GatewayURL  string        `mapstructure:"gateway_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

type TelemetryConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	ServiceName   string              `mapstructure:"service_name"`
	OTELCollector OTELCollectorConfig `mapstructure:"otel_collector"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type OTELCollectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MetricsConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Set default values
	if config.Server.Websocket.PushInterval == 0 {
		config.Server.Websocket.PushInterval = time.Second
	}
	if config.Notify.Timeout == 0 {
		config.Notify.Timeout = 5 * time.Second
	}
	if config.Settlement.Timeout == 0 {
		config.Settlement.Timeout = 10 * time.Second
	}
	if config.Settlement.MaxAttempts == 0 {
		config.Settlement.MaxAttempts = 5
	}
	if config.Settlement.BaseBackoff == 0 {
		config.Settlement.BaseBackoff = 500 * time.Millisecond
	}
	if config.Settlement.MaxBackoff == 0 {
		config.Settlement.MaxBackoff = 8 * time.Second
	}
	if config.Telemetry.ServiceName == "" {
		config.Telemetry.ServiceName = "bidtask"
	}
	if config.Telemetry.Metrics.Interval == 0 {
		config.Telemetry.Metrics.Interval = 15 * time.Second
	}

	return &config, nil
}
