// Package configcmder provides the config command for managing persistent
// ragloop configuration stored in the .ragloop/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragloop/pkg/cliui"
	"github.com/papercomputeco/ragloop/pkg/config"
)

const configLongDesc string = `Manage persistent ragloop configuration.

Configuration is stored as config.toml in the .ragloop/ directory and provides
default values for command flags. CLI flags and RAGLOOP_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  embedding.provider, embedding.model, embedding.fallback.provider,
  completion.provider, completion.model,
  vector_store.provider, vector_store.target,
  retrieval.top_k, retrieval.system_prompt,
  telemetry.provider, telemetry.target, telemetry.trace_store,
  session.ttl, session.end_phrase

Use subcommands to get, set, or list configuration values:
  ragloop config set <key> <value>    Set a configuration value
  ragloop config get <key>            Get a configuration value
  ragloop config list                 List all configuration values

Examples:
  ragloop config set completion.provider anthropic
  ragloop config set retrieval.top_k 5
  ragloop config get embedding.model
  ragloop config list`

const configShortDesc string = "Manage persistent ragloop configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
