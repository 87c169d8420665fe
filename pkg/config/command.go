package config

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FlagConfigDir is the persistent root flag that overrides the .ragloop/
// directory used for config.toml.
const FlagConfigDir = "config-dir"

// ResolveCommand builds the effective Config for cmd: registered flags that
// the user set win over RAGLOOP_* environment variables, which win over
// config.toml, which wins over NewDefaultConfig.
func ResolveCommand(cmd *cobra.Command, fs FlagSet, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, fs, registryKeys)

	cfg, err := Unmarshal(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
