// Package configcmder provides the config command for managing persistent
// authorid configuration stored in the .authorid/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/authorid/authorid/pkg/cliui"
	"github.com/authorid/authorid/pkg/config"
)

const configLongDesc string = `Manage persistent authorid configuration.

Configuration is stored as config.toml in the .authorid/ directory and provides
default values for command flags. CLI flags and AUTHORID_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen,
  fingerprint.target, fingerprint.path, fingerprint.timeout,
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  images.provider, images.dir, images.s3_bucket, images.s3_prefix,
  images.s3_region, images.s3_endpoint,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  log.file

Use subcommands to get, set, or list configuration values:
  authorid config set <key> <value>    Set a configuration value
  authorid config get <key>            Get a configuration value
  authorid config list                 List all configuration values

Examples:
  authorid config set fingerprint.target http://model:5000
  authorid config set storage.provider postgres
  authorid config get storage.provider
  authorid config list`

const configShortDesc string = "Manage persistent authorid configuration"

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

// printTarget reports which config file a command reads or writes.
func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
