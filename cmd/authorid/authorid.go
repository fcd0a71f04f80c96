// Package authoridcmder is the root authorid command.
package authoridcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/authorid/authorid/cmd/authorid/config"
	fingerprintcmder "github.com/authorid/authorid/cmd/authorid/fingerprint"
	initcmder "github.com/authorid/authorid/cmd/authorid/init"
	servecmder "github.com/authorid/authorid/cmd/authorid/serve"
	versioncmder "github.com/authorid/authorid/cmd/version"
)

const authoridLongDesc string = `authorid identifies the author of a handwriting sample.

Register labelled handwriting samples, then upload a query image to get the
known authors ranked by how close their samples are.

Commands:
  authorid init                   Create a local .authorid/ directory
  authorid serve                  Run the API server
  authorid fingerprint <image>    Fingerprint an image with the model server
  authorid config                 Manage persistent configuration`

const authoridShortDesc string = "authorid - handwriting author identification"

func NewAuthoridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authorid",
		Short:        authoridShortDesc,
		Long:         authoridLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .authorid/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(fingerprintcmder.NewFingerprintCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
