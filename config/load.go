package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/relaygo/relayer/ibc"
)

// Load reads the config file at path (any format viper supports — YAML,
// TOML, JSON) and returns the validated Config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrNoPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("global.log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshalling")
	}

	// viper lowercases map keys; key each chain by its own id's casing.
	chains := make(map[ibc.ChainID]ChainConfig, len(cfg.Chains))
	for key, cc := range cfg.Chains {
		if strings.EqualFold(string(key), string(cc.ID)) {
			key = cc.ID
		}
		chains[key] = cc
	}
	cfg.Chains = chains

	if len(cfg.Chains) == 0 {
		return nil, ErrNoChains
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
