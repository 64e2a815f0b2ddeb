package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	DefaultDoublezeroURL = "https://doublezero.xyz"
	DefaultAttempts      = 5
)

// Config holds the probe settings. Every field can be overridden by a
// command-line flag.
type Config struct {
	RPCURL        string   `yaml:"rpc_url"`
	Attempts      int      `yaml:"attempts"`
	ClientPort    int      `yaml:"client_port"`
	Concurrency   int      `yaml:"concurrency"`
	STUNServers   []string `yaml:"stun_servers"`
	DoublezeroURL string   `yaml:"doublezero_url"`
	CSVPath       string   `yaml:"csv_path"`
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if cfg.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if cfg.ClientPort < 0 || cfg.ClientPort > 65535 {
		return fmt.Errorf("client_port out of range: %d", cfg.ClientPort)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}
	if cfg.DoublezeroURL == "" {
		cfg.DoublezeroURL = DefaultDoublezeroURL
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
}
