// Package initcmder provides the init command for initializing a local
// .authorid directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/authorid/authorid/pkg/cliui"
	"github.com/authorid/authorid/pkg/config"
	"github.com/authorid/authorid/pkg/dotdir"
)

const (
	dirName = ".authorid"
)

const initLongDesc string = `Initialize a new .authorid/ directory in the current working directory.

Creates a local .authorid/ directory that takes precedence over the default
~/.authorid/ directory. It holds config.toml with default values, the session
key used to encrypt login cookies and, unless configured otherwise, the
SQLite database and uploaded images.

Running init again keeps existing files.

Examples:
  authorid init`

const initShortDesc string = "Initialize a local .authorid/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runInit(w io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .authorid directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	case err != nil:
		return fmt.Errorf("checking config: %w", err)
	}

	if _, err := dotdir.NewManager().EnsureSecretKey(dir); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Initialized %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(dir))
	return nil
}
