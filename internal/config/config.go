// Package config defines the hub's typed configuration: Default() values
// overlaid by an optional TOML file (go-toml/v2) named by the --config
// flag. No individual field is bound to a command-line flag.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the node's full runtime configuration.
type Config struct {
	DataDir    string `toml:"datadir"`
	Network    string `toml:"network"`
	RPCAddr    string `toml:"rpc_addr"`
	GossipAddr string `toml:"gossip_addr"`
	Peers      []string `toml:"peers"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`

	MetricsAddr string `toml:"metrics_addr"`

	ReactionsEnabled bool `toml:"reactions_enabled"`

	SignerPruneLimit       int `toml:"signer_prune_limit"`
	CastPruneLimit         int `toml:"cast_prune_limit"`
	ReactionPruneLimit     int `toml:"reaction_prune_limit"`
	AmpPruneLimit          int `toml:"amp_prune_limit"`
	VerificationPruneLimit int `toml:"verification_prune_limit"`
	UserDataPruneLimit     int `toml:"user_data_prune_limit"`
}

// Default returns the configuration used when no file or flag overrides
// a field.
func Default() Config {
	return Config{
		DataDir:     "./data",
		Network:     "mainnet",
		RPCAddr:     "0.0.0.0:2283",
		GossipAddr:  "0.0.0.0:2282",
		LogLevel:    "info",
		MetricsAddr: "0.0.0.0:2287",
	}
}

// Load reads a TOML file at path over Default(), returning Default()
// unchanged if path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
