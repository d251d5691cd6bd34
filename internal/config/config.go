// Package config loads the storefront configuration from storefront.yaml,
// STOREFRONT_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. STOREFRONT_RPC_URL or
// STOREFRONT_STORAGE_POSTGRES_DSN.
const EnvPrefix = "STOREFRONT"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDatabase = "database"
)

// Config is the full storefront configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"listen"`
	// IndexerURL is the GraphQL endpoint of the deployment indexer.
	IndexerURL string `mapstructure:"indexer_url"`
	// RPCURL serves contract reads.
	RPCURL string `mapstructure:"rpc_url"`
	// WalletURL receives eth_sendTransaction. Defaults to RPCURL.
	WalletURL string `mapstructure:"wallet_url"`
	// WSURL enables the newHeads subscription that drives mint confirmation.
	WSURL string `mapstructure:"ws_url"`
	// LocalGateway and PublicGateway serve IPFS content.
	LocalGateway  string `mapstructure:"local_gateway"`
	PublicGateway string `mapstructure:"public_gateway"`
	// PageSize is the number of records on the catalog page.
	PageSize int `mapstructure:"page_size"`

	RPC     RPCConfig     `mapstructure:"rpc"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Mint    MintConfig    `mapstructure:"mint"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type RPCConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type GatewayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type MintConfig struct {
	SignatureTimeout time.Duration `mapstructure:"signature_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
}

type StorageConfig struct {
	// Backend is "memory" or "database" (PostgreSQL + ClickHouse).
	Backend          string `mapstructure:"backend"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
	ClickhouseDSN    string `mapstructure:"clickhouse_dsn"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var defaults = map[string]interface{}{
	"listen":         ":3000",
	"indexer_url":    "http://localhost:3001/graphql",
	"rpc_url":        "http://localhost:8545",
	"wallet_url":     "",
	"ws_url":         "",
	"local_gateway":  "http://localhost:8080/ipfs/",
	"public_gateway": "https://ipfs.io/ipfs/",
	"page_size":      24,

	"rpc.timeout":     30 * time.Second,
	"rpc.max_retries": 3,

	"gateway.timeout": 15 * time.Second,

	"mint.signature_timeout": 5 * time.Minute,
	"mint.poll_interval":     5 * time.Second,

	"storage.backend":            BackendMemory,
	"storage.postgres_dsn":       "",
	"storage.postgres_max_conns": 10,
	"storage.clickhouse_dsn":     "",

	"log.level":        "info",
	"log.json":         false,
	"log.file":         "",
	"log.max_size_mb":  100,
	"log.max_backups":  5,
	"log.max_age_days": 28,
}

// New returns a viper instance carrying the defaults and environment binding.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file, or storefront.yaml from the working directory or
// ./config when file is empty, and returns the validated configuration.
// A missing default config file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.WalletURL == "" {
		cfg.WalletURL = cfg.RPCURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"indexer_url":    c.IndexerURL,
		"rpc_url":        c.RPCURL,
		"wallet_url":     c.WalletURL,
		"local_gateway":  c.LocalGateway,
		"public_gateway": c.PublicGateway,
	} {
		if err := checkURL(raw, "http", "https"); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.WSURL != "" {
		if err := checkURL(c.WSURL, "ws", "wss"); err != nil {
			return fmt.Errorf("ws_url: %w", err)
		}
	}

	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be greater than 0")
	}
	if c.Mint.SignatureTimeout <= 0 || c.Mint.PollInterval <= 0 {
		return errors.New("mint timeouts must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDatabase:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "" {
			return errors.New("storage.postgres_dsn and storage.clickhouse_dsn are required for the database backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be a %s url", raw, strings.Join(schemes, "/"))
}

type ctxKey struct{}

// WithContext stores cfg in ctx.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(ctxKey{}).(*Config)
	return cfg
}
