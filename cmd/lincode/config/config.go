// Package configcmder provides the config command for managing persistent
// lincode configuration stored in the .lincode/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent lincode configuration.

Configuration is stored as config.toml in the .lincode/ directory and provides
default values for command flags. CLI flags and LINCODE_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen,
  client.target, client.stall_timeout,
  llm.provider, llm.upstream, llm.model, llm.max_tokens, llm.system_prompt_path,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  lincode config set <key> <value>    Set a configuration value
  lincode config get <key>            Get a configuration value
  lincode config list                 List all configuration values

Examples:
  lincode config set llm.provider anthropic
  lincode config set client.stall_timeout 90s
  lincode config get llm.model
  lincode config list`

const configShortDesc string = "Manage persistent lincode configuration"

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
