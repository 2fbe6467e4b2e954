// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// WalletConfig holds wallet provider and coordinator settings.
type WalletConfig struct {
	ProviderURL       string            `mapstructure:"provider_url"` // empty means no wallet provider
	PollInterval      time.Duration     `mapstructure:"poll_interval"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	ConnectTimeout    time.Duration     `mapstructure:"connect_timeout"`
	EventDebounce     time.Duration     `mapstructure:"event_debounce"`
	SessionPath       string            `mapstructure:"session_path"` // empty keeps the session flag in memory
	Networks          []NetworkOverride `mapstructure:"networks"`
}

// NetworkOverride replaces the RPC or explorer URL of a built-in network.
type NetworkOverride struct {
	ChainID          uint64 `mapstructure:"chain_id"`
	RPCURL           string `mapstructure:"rpc_url"`
	BlockExplorerURL string `mapstructure:"block_explorer_url"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // otlp, zipkin, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("WALLET")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "WALLET_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "WALLET_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "WALLET_LOG_LEVEL", "LOG_LEVEL")

	// Wallet
	v.BindEnv("wallet.provider_url", "WALLET_PROVIDER_URL")
	v.BindEnv("wallet.poll_interval", "WALLET_POLL_INTERVAL")
	v.BindEnv("wallet.requests_per_minute", "WALLET_REQUESTS_PER_MINUTE")
	v.BindEnv("wallet.connect_timeout", "WALLET_CONNECT_TIMEOUT")
	v.BindEnv("wallet.event_debounce", "WALLET_EVENT_DEBOUNCE")
	v.BindEnv("wallet.session_path", "WALLET_SESSION_PATH")

	// Health
	v.BindEnv("health.enabled", "WALLET_HEALTH_ENABLED")
	v.BindEnv("health.port", "WALLET_HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "WALLET_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "WALLET_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_exporter", "WALLET_OTEL_TRACE_EXPORTER")
	v.BindEnv("telemetry.otlp_endpoint", "WALLET_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "WALLET_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.otlp_protocol", "WALLET_OTEL_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "launchpad-wallet")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Wallet defaults
	v.SetDefault("wallet.provider_url", "")
	v.SetDefault("wallet.poll_interval", "2s")
	v.SetDefault("wallet.requests_per_minute", 600)
	v.SetDefault("wallet.connect_timeout", "2m")
	v.SetDefault("wallet.event_debounce", "1s")
	v.SetDefault("wallet.session_path", "")

	// Health defaults
	v.SetDefault("health.enabled", false)
	v.SetDefault("health.port", 8080)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "launchpad-wallet")
	v.SetDefault("telemetry.trace_exporter", "otlp")
	v.SetDefault("telemetry.otlp_protocol", "http/protobuf")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Wallet.ProviderURL != "" {
		u, err := url.Parse(c.Wallet.ProviderURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid wallet.provider_url: %q", c.Wallet.ProviderURL)
		}
	}
	if c.Wallet.PollInterval <= 0 {
		return fmt.Errorf("wallet.poll_interval must be positive")
	}
	if c.Wallet.RequestsPerMinute <= 0 {
		return fmt.Errorf("wallet.requests_per_minute must be positive")
	}
	if c.Wallet.ConnectTimeout <= 0 {
		return fmt.Errorf("wallet.connect_timeout must be positive")
	}
	if c.Wallet.EventDebounce < 0 {
		return fmt.Errorf("wallet.event_debounce cannot be negative")
	}

	known := domain.DefaultRegistry()
	for _, n := range c.Wallet.Networks {
		if _, ok := known.Lookup(n.ChainID); !ok {
			return fmt.Errorf("wallet.networks: unsupported chain_id %d", n.ChainID)
		}
	}

	if c.Health.Enabled && (c.Health.Port <= 0 || c.Health.Port > 65535) {
		return fmt.Errorf("invalid health.port: %d", c.Health.Port)
	}

	switch c.Telemetry.TraceExporter {
	case "otlp", "zipkin", "console":
	default:
		return fmt.Errorf("invalid telemetry.trace_exporter: %q", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.Enabled && c.Telemetry.TraceExporter != "console" && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	return nil
}

// Registry builds the network registry with configured overrides applied.
func (c *WalletConfig) Registry() (*domain.NetworkRegistry, error) {
	networks := domain.DefaultNetworks()
	for _, o := range c.Networks {
		for i := range networks {
			if networks[i].ChainID != o.ChainID {
				continue
			}
			if o.RPCURL != "" {
				networks[i].RPCURL = o.RPCURL
			}
			if o.BlockExplorerURL != "" {
				networks[i].BlockExplorerURL = o.BlockExplorerURL
			}
		}
	}
	return domain.NewNetworkRegistry(networks...)
}
