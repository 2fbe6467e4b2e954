package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "launchpad-wallet", cfg.App.Name)
	assert.Equal(t, "", cfg.Wallet.ProviderURL)
	assert.Equal(t, 2*time.Second, cfg.Wallet.PollInterval)
	assert.Equal(t, time.Second, cfg.Wallet.EventDebounce)
	assert.Equal(t, 2*time.Minute, cfg.Wallet.ConnectTimeout)
	assert.Equal(t, "otlp", cfg.Telemetry.TraceExporter)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.yaml")
	yaml := `
app:
  log_level: debug
wallet:
  provider_url: http://127.0.0.1:8545
  event_debounce: 250ms
  networks:
    - chain_id: 97
      rpc_url: https://bsc-testnet.example.org
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("WALLET_SESSION_PATH", filepath.Join(dir, "session.db"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Wallet.ProviderURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Wallet.EventDebounce)
	assert.Equal(t, filepath.Join(dir, "session.db"), cfg.Wallet.SessionPath)

	reg, err := cfg.Wallet.Registry()
	require.NoError(t, err)
	testnet, ok := reg.Lookup(domain.ChainBSCTestnet)
	require.True(t, ok)
	assert.Equal(t, "https://bsc-testnet.example.org", testnet.RPCURL)
	assert.Equal(t, 4, reg.Len())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Wallet: WalletConfig{
				PollInterval:      time.Second,
				RequestsPerMinute: 60,
				ConnectTimeout:    time.Minute,
				EventDebounce:     time.Second,
			},
			Telemetry: TelemetryConfig{TraceExporter: "otlp"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad_provider_url", mutate: func(c *Config) { c.Wallet.ProviderURL = "localhost" }, wantErr: true},
		{name: "zero_poll_interval", mutate: func(c *Config) { c.Wallet.PollInterval = 0 }, wantErr: true},
		{name: "unknown_network_override", mutate: func(c *Config) {
			c.Wallet.Networks = []NetworkOverride{{ChainID: 999999, RPCURL: "https://x"}}
		}, wantErr: true},
		{name: "bad_exporter", mutate: func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }, wantErr: true},
		{name: "telemetry_without_endpoint", mutate: func(c *Config) { c.Telemetry.Enabled = true }, wantErr: true},
		{name: "health_bad_port", mutate: func(c *Config) {
			c.Health = HealthConfig{Enabled: true, Port: 70000}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
