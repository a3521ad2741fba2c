package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fanvault/reconciler/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// EthereumConfig holds ledger network configuration
type EthereumConfig struct {
	// PrimaryRPCURL is the primary read endpoint; required
	PrimaryRPCURL string `mapstructure:"primary_rpc_url"`
	// SecondaryRPCURL is tried once when the primary signals rate limiting
	SecondaryRPCURL string `mapstructure:"secondary_rpc_url"`
	// AssetContract is the support-asset (bonding curve) contract address; required
	AssetContract string `mapstructure:"asset_contract"`
	// TreasuryAddress holds unsold supply; subtracted from total supply
	TreasuryAddress string `mapstructure:"treasury_address"`
	// BeaconFactoryAddress is the beacon-proxy wallet factory
	BeaconFactoryAddress string `mapstructure:"beacon_factory_address"`
	// SimpleFactoryAddress is the simple-account wallet factory
	SimpleFactoryAddress string `mapstructure:"simple_factory_address"`
	// DerivationMaxIndex bounds the counterfactual parameter search (inclusive)
	DerivationMaxIndex int `mapstructure:"derivation_max_index"`
	// RequestTimeout bounds one reconciliation pipeline
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// KeyVaultConfig holds key-material decryption configuration
type KeyVaultConfig struct {
	// Secret is the server-held secret the per-record key is derived from.
	// Empty disables EOA resolution; derivation steps depending on it are skipped.
	Secret string `mapstructure:"secret"`
	// Iterations is the PBKDF2 iteration count
	Iterations int `mapstructure:"iterations"`
}

// RatesConfig holds the exchange-rate vendor configuration
type RatesConfig struct {
	URL         string        `mapstructure:"url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds fan-out worker pool configuration
type WorkerConfig struct {
	PoolSize          int `mapstructure:"pool_size"`
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

// APIConfig holds configuration for the API server binary
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	KeyVault   KeyVaultConfig `mapstructure:"keyvault"`
	Rates      RatesConfig    `mapstructure:"rates"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Worker     WorkerConfig   `mapstructure:"worker"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ethereum.derivation_max_index", 5)
	v.SetDefault("ethereum.request_timeout", "25s")
	v.SetDefault("keyvault.iterations", 120000)
	v.SetDefault("rates.url", "https://api.coinbase.com/v2/exchange-rates?currency=ETH")
	v.SetDefault("rates.http_timeout", "10s")
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.requests_per_second", 25)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration the engine cannot run without.
// Everything else degrades at request time instead.
func (c *APIConfig) Validate() error {
	if c.Ethereum.PrimaryRPCURL == "" {
		return fmt.Errorf("%w: ethereum.primary_rpc_url is required", domain.ErrMissingLedgerConfig)
	}
	if c.Ethereum.AssetContract == "" {
		return fmt.Errorf("%w: ethereum.asset_contract is required", domain.ErrMissingLedgerConfig)
	}
	if c.Ethereum.DerivationMaxIndex < 0 {
		return errors.New("ethereum.derivation_max_index must not be negative")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FANVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// This is required for viper to map env vars to config struct fields when no config file exists.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.primary_rpc_url",
		"ethereum.secondary_rpc_url",
		"ethereum.asset_contract",
		"ethereum.treasury_address",
		"ethereum.beacon_factory_address",
		"ethereum.simple_factory_address",
		"ethereum.derivation_max_index",
		"ethereum.request_timeout",
		// Key vault
		"keyvault.secret",
		"keyvault.iterations",
		// Rates
		"rates.url",
		"rates.http_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Worker
		"worker.pool_size",
		"worker.requests_per_second",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
