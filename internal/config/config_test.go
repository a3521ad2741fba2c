package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvault/reconciler/internal/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		errIs       error
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
ethereum:
  primary_rpc_url: "https://rpc.example.com"
  secondary_rpc_url: "https://rpc-fallback.example.com"
  asset_contract: "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
  treasury_address: "0x9999999999999999999999999999999999999999"
  beacon_factory_address: "0x1111111111111111111111111111111111111111"
  simple_factory_address: "0x2222222222222222222222222222222222222222"
  derivation_max_index: 3
  request_timeout: "15s"
keyvault:
  secret: "server-secret"
  iterations: 150000
worker:
  pool_size: 8
  requests_per_second: 10
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "https://rpc.example.com", cfg.Ethereum.PrimaryRPCURL)
				assert.Equal(t, "https://rpc-fallback.example.com", cfg.Ethereum.SecondaryRPCURL)
				assert.Equal(t, 3, cfg.Ethereum.DerivationMaxIndex)
				assert.Equal(t, 15*time.Second, cfg.Ethereum.RequestTimeout)
				assert.Equal(t, "server-secret", cfg.KeyVault.Secret)
				assert.Equal(t, 150000, cfg.KeyVault.Iterations)
				assert.Equal(t, 8, cfg.Worker.PoolSize)
				assert.Equal(t, 10, cfg.Worker.RequestsPerSecond)
			},
		},
		{
			name: "config with defaults",
			configFile: `
ethereum:
  primary_rpc_url: "https://rpc.example.com"
  asset_contract: "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5, cfg.Ethereum.DerivationMaxIndex)
				assert.Equal(t, 25*time.Second, cfg.Ethereum.RequestTimeout)
				assert.Equal(t, 120000, cfg.KeyVault.Iterations)
				assert.Equal(t, 20, cfg.Worker.PoolSize)
				assert.Equal(t, 25, cfg.Worker.RequestsPerSecond)
				assert.Contains(t, cfg.Rates.URL, "exchange-rates")
			},
		},
		{
			name: "missing primary rpc url",
			configFile: `
ethereum:
  asset_contract: "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
`,
			expectError: true,
			errIs:       domain.ErrMissingLedgerConfig,
		},
		{
			name: "missing asset contract",
			configFile: `
ethereum:
  primary_rpc_url: "https://rpc.example.com"
`,
			expectError: true,
			errIs:       domain.ErrMissingLedgerConfig,
		},
		{
			name: "negative derivation max index",
			configFile: `
ethereum:
  primary_rpc_url: "https://rpc.example.com"
  asset_contract: "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
  derivation_max_index: -1
`,
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, tc.configFile)

			cfg, err := LoadAPIConfig(path, t.TempDir())
			if tc.expectError {
				require.Error(t, err)
				if tc.errIs != nil {
					assert.ErrorIs(t, err, tc.errIs)
				}
				return
			}
			require.NoError(t, err)
			tc.validate(t, cfg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "reconciler",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=user password=pass dbname=reconciler sslmode=disable",
		cfg.DSN())
}
