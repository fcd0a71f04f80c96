// Package fingerprintcmder provides the fingerprint command, which sends one
// image to the model server and prints the vector it returns.
package fingerprintcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/authorid/authorid/pkg/cliui"
	"github.com/authorid/authorid/pkg/config"
	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/fingerprint/modelserver"
	"github.com/authorid/authorid/pkg/upload"
	"github.com/authorid/authorid/pkg/utils"
	"github.com/authorid/authorid/pkg/vec"
)

// previewLen bounds the printed vector unless --full is set.
const previewLen = 120

type fingerprintCommander struct {
	imagePath string
	full      bool
	jsonOut   bool

	cfg *config.Config

	// newFingerprinter is swapped in tests.
	newFingerprinter func(cfg *config.Config) (fingerprint.Fingerprinter, error)
}

var fingerprintFlags = []string{
	config.FlagFingerprintTarget,
	config.FlagFingerprintPath,
	config.FlagFingerprintTimeout,
}

const fingerprintLongDesc string = `Fingerprint an image with the model server.

Validates the image, sends it to the configured model server and prints the
returned vector. Useful for checking a model deployment before pointing the
API server at it.

Examples:
  authorid fingerprint author1.png
  authorid fingerprint author1.png --full
  authorid fingerprint author1.png --json --fingerprint-target http://model:5000`

const fingerprintShortDesc string = "Fingerprint an image with the model server"

func NewFingerprintCmd() *cobra.Command {
	return newFingerprintCmd(&fingerprintCommander{newFingerprinter: newModelServerClient})
}

func newFingerprintCmd(cmder *fingerprintCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint <image>",
		Short: fingerprintShortDesc,
		Long:  fingerprintLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, fingerprintFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.imagePath = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	for _, key := range fingerprintFlags {
		config.AddStringFlag(cmd, config.DefaultFlags, key, nil)
	}
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print every component of the vector")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print only the vector as a JSON array")

	return cmd
}

func (c *fingerprintCommander) run(ctx context.Context, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(c.imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	img, err := upload.Validate(filepath.Base(c.imagePath), data)
	if err != nil {
		return err
	}

	fingerprinter, err := c.newFingerprinter(c.cfg)
	if err != nil {
		return err
	}
	defer fingerprinter.Close()

	var fp vec.Vector
	err = cliui.Step(stderr, fmt.Sprintf("Fingerprinting %s (%dx%d %s)", img.Filename, img.Width, img.Height, img.Format), func() error {
		var ferr error
		fp, ferr = fingerprint.Of(ctx, fingerprinter, img.Filename, img.Data)
		return ferr
	})
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encoding fingerprint: %w", err)
	}

	if c.jsonOut {
		fmt.Fprintln(stdout, string(encoded))
		return nil
	}

	vector := string(encoded)
	if !c.full {
		vector = utils.Truncate(vector, previewLen)
	}

	cliui.KeyValue(stdout, 10, "dimensions", fmt.Sprint(fp.Dimensions()))
	cliui.KeyValue(stdout, 10, "magnitude", fmt.Sprintf("%.6f", vec.Magnitude(fp)))
	cliui.KeyValue(stdout, 10, "vector", vector)
	return nil
}

func newModelServerClient(cfg *config.Config) (fingerprint.Fingerprinter, error) {
	timeout, err := cfg.Fingerprint.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	client, err := modelserver.NewClient(modelserver.Config{
		BaseURL: cfg.Fingerprint.Target,
		Path:    cfg.Fingerprint.Path,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
