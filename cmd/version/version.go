// Package versioncmder
package versioncmder

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/authorid/authorid/pkg/cliui"
	"github.com/authorid/authorid/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *VersionCommander) run(w io.Writer) error {
	cliui.KeyValue(w, 8, "Version", utils.Version)
	cliui.KeyValue(w, 8, "Sha", utils.Sha)
	cliui.KeyValue(w, 8, "Built at", utils.Buildtime)
	return nil
}
