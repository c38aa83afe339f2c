package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"peerprobe/wire"
)

// Config represents the configuration for the peerprobe application
type Config struct {
	// Default config file location
	configFile string

	Network struct {
		// Name selects the Bitcoin network: mainnet, testnet3 or regtest.
		Name string `json:"name"`
		// Port overrides the network's default peer port when non-zero.
		Port uint16 `json:"port,omitempty"`
	} `json:"network"`

	Handshake struct {
		UserAgent string `json:"useragent"`
		TimeoutMs int    `json:"timeout_ms"`
	} `json:"handshake"`

	DataStore struct {
		// LedgerPath is the LevelDB directory holding handshake outcomes.
		// Empty keeps the ledger in memory only.
		LedgerPath string `json:"ledger"`
	} `json:"datastore"`
}

// NewEmptyConfig generates a new configuration with default settings
func NewEmptyConfig(configFile string) *Config {
	cfg := &Config{}

	cfg.configFile = configFile

	cfg.Network.Name = "mainnet"
	cfg.Handshake.UserAgent = wire.DefaultUserAgent
	cfg.Handshake.TimeoutMs = 2000
	cfg.DataStore.LedgerPath = "/tmp/peerprobe/ledger"

	return cfg
}

func NewConfigFromFile(configFile string) (*Config, error) {
	cfg := NewEmptyConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save() error {
	log.Infof("Saving config to %s", c.configFile)

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) Load() error {
	log.Infof("Loading config from %s", c.configFile)
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}

// WireNetwork maps the configured network name to its wire constant.
func (c *Config) WireNetwork() (wire.Network, error) {
	switch c.Network.Name {
	case "", "mainnet":
		return wire.Mainnet, nil
	case "testnet3":
		return wire.Testnet3, nil
	case "regtest":
		return wire.Regtest, nil
	}
	return 0, fmt.Errorf("config: unknown network %q", c.Network.Name)
}

// PeerPort returns the configured port, falling back to the network default.
func (c *Config) PeerPort(network wire.Network) uint16 {
	if c.Network.Port != 0 {
		return c.Network.Port
	}
	return network.DefaultPort()
}

// HandshakeTimeout returns the per-attempt budget.
func (c *Config) HandshakeTimeout() time.Duration {
	if c.Handshake.TimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Handshake.TimeoutMs) * time.Millisecond
}
