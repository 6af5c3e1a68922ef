// Package config loads the daemon's runtime settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lendboard/ledger"
)

// Config captures the runtime settings for the lendboard daemon.
type Config struct {
	ListenAddress   string        `yaml:"listen"`
	Network         string        `yaml:"network"`
	LedgerRPCURL    string        `yaml:"ledger_rpc_url"`
	WalletBridgeURL string        `yaml:"wallet_bridge_url"`
	AllowInsecure   bool          `yaml:"allow_insecure"`
	RPCTimeout      time.Duration `yaml:"rpc_timeout"`
	IndexerDelay    time.Duration `yaml:"indexer_refresh_delay"`
	Pools           []PoolConfig  `yaml:"pools"`
}

// PoolConfig describes one lending pool the dashboard serves.
type PoolConfig struct {
	Name       string `yaml:"name"`
	CoinType   string `yaml:"coin_type"`
	Decimals   int    `yaml:"decimals"`
	PoolID     string `yaml:"pool_id"`
	RegistryID string `yaml:"registry_id"`
	Referral   string `yaml:"referral,omitempty"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddress: ":8480",
		Network:       "mainnet",
		RPCTimeout:    30 * time.Second,
		IndexerDelay:  3 * time.Second,
	}
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8480"
	}
	cfg.Network = strings.TrimSpace(cfg.Network)
	if cfg.Network == "" {
		cfg.Network = "mainnet"
	}
	cfg.LedgerRPCURL = strings.TrimSpace(cfg.LedgerRPCURL)
	cfg.WalletBridgeURL = strings.TrimSpace(cfg.WalletBridgeURL)
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 30 * time.Second
	}
	if cfg.IndexerDelay <= 0 {
		cfg.IndexerDelay = 3 * time.Second
	}
	for i := range cfg.Pools {
		cfg.Pools[i].normalize()
	}
}

func (p *PoolConfig) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.CoinType = strings.TrimSpace(p.CoinType)
	p.PoolID = strings.TrimSpace(p.PoolID)
	p.RegistryID = strings.TrimSpace(p.RegistryID)
	p.Referral = strings.TrimSpace(p.Referral)
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if cfg.LedgerRPCURL == "" {
		return fmt.Errorf("ledger_rpc_url is required")
	}
	if cfg.WalletBridgeURL == "" {
		return fmt.Errorf("wallet_bridge_url is required")
	}
	if len(cfg.Pools) == 0 {
		return fmt.Errorf("at least one pool must be configured")
	}
	seen := make(map[string]struct{}, len(cfg.Pools))
	for i, pool := range cfg.Pools {
		if err := pool.validate(); err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		if _, dup := seen[pool.Name]; dup {
			return fmt.Errorf("pool %d: duplicate name %q", i, pool.Name)
		}
		seen[pool.Name] = struct{}{}
	}
	return nil
}

func (p PoolConfig) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := ledger.ParseTypeTag(p.CoinType); err != nil {
		return fmt.Errorf("coin_type: %w", err)
	}
	if p.Decimals < 0 || p.Decimals > 18 {
		return fmt.Errorf("decimals %d out of range", p.Decimals)
	}
	if !strings.HasPrefix(p.PoolID, "0x") {
		return fmt.Errorf("pool_id %q is not an object id", p.PoolID)
	}
	if !strings.HasPrefix(p.RegistryID, "0x") {
		return fmt.Errorf("registry_id %q is not an object id", p.RegistryID)
	}
	if p.Referral != "" && !strings.HasPrefix(p.Referral, "0x") {
		return fmt.Errorf("referral %q is not an object id", p.Referral)
	}
	return nil
}
