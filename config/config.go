// Package config loads and validates the relayer's static configuration:
// the chain registry, per-chain relay modes, and the packet filter
// policy — a single typed struct hydrated by viper, validated once at
// startup.
package config

import (
	"fmt"

	"github.com/relaygo/relayer/ibc"
)

// Config is the full static configuration of one relayer instance.
type Config struct {
	Global GlobalConfig                `mapstructure:"global"`
	Chains map[ibc.ChainID]ChainConfig `mapstructure:"chains"`
}

// GlobalConfig holds relayer-wide tunables that aren't specific to any one
// chain.
type GlobalConfig struct {
	LogLevel string `mapstructure:"log_level"`
	// RESTListenAddr, when non-empty, starts the read-only state
	// endpoint.
	RESTListenAddr string `mapstructure:"rest_listen_addr"`
}

// ChainConfig describes one chain the relayer registers a handle for and
// the relay modes enabled against it.
type ChainConfig struct {
	ID      ibc.ChainID `mapstructure:"id"`
	RPCAddr string      `mapstructure:"rpc_addr"`
	Mode    ModeConfig  `mapstructure:"mode"`
}

// ModeConfig is the set of object kinds the supervisor is willing to
// spawn workers for.
type ModeConfig struct {
	Clients     ClientsConfig     `mapstructure:"clients"`
	Connections ConnectionsConfig `mapstructure:"connections"`
	Channels    ChannelsConfig    `mapstructure:"channels"`
	Packets     PacketsConfig     `mapstructure:"packets"`
}

type ClientsConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	Misbehaviour bool `mapstructure:"misbehaviour"`
	Refresh      bool `mapstructure:"refresh"`
}

type ConnectionsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ChannelsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PacketsConfig gates packet-relay worker spawning and optionally scopes
// it to an allowlist of channels.
type PacketsConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Filter  FilterConfig `mapstructure:"filter"`
}

// FilterConfig is the channel allowlist. An empty Channels list with
// Policy enabled means "no packet worker is ever permitted": a chain that
// opts into filtering without naming any channels gets the conservative
// default.
type FilterConfig struct {
	Policy   bool                 `mapstructure:"policy"`
	Channels []ChannelFilterEntry `mapstructure:"channels"`
}

// ChannelFilterEntry names one allowed channel on its own chain.
type ChannelFilterEntry struct {
	PortID    ibc.PortID    `mapstructure:"port_id"`
	ChannelID ibc.ChannelID `mapstructure:"channel_id"`
}

// Validate checks the structural invariants the loader can't express
// through mapstructure tags alone.
func (c *Config) Validate() error {
	for id, cc := range c.Chains {
		if cc.ID != id {
			return fmt.Errorf("config: chain entry %q has mismatched id %q", id, cc.ID)
		}
		if cc.RPCAddr == "" {
			return fmt.Errorf("config: chain %q: rpc_addr is required", id)
		}
	}
	return nil
}

// ChainIDs returns the configured chain set in no particular order.
func (c *Config) ChainIDs() []ibc.ChainID {
	ids := make([]ibc.ChainID, 0, len(c.Chains))
	for id := range c.Chains {
		ids = append(ids, id)
	}
	return ids
}

// Allows reports whether the filter policy permits relaying on the given
// channel. A chain with no filter policy enabled allows everything; the
// conservative default applies only when the policy is turned on.
func (f FilterConfig) Allows(portID ibc.PortID, channelID ibc.ChannelID) bool {
	if !f.Policy {
		return true
	}
	for _, e := range f.Channels {
		if e.PortID == portID && e.ChannelID == channelID {
			return true
		}
	}
	return false
}
