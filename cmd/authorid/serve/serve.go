// Package servecmder provides the serve command that runs the authorid API server.
package servecmder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/authorid/authorid/api"
	"github.com/authorid/authorid/pkg/config"
	"github.com/authorid/authorid/pkg/dotdir"
	"github.com/authorid/authorid/pkg/logger"
)

type serveCommander struct {
	configDir string
	debug     bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are the registry flags the serve command exposes.
var serveFlags = []string{
	config.FlagListen,
	config.FlagFingerprintTarget,
	config.FlagFingerprintPath,
	config.FlagFingerprintTimeout,
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagImagesProvider,
	config.FlagImagesDir,
	config.FlagEventstreamProvider,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the authorid API server.

The server stores users and labelled samples, sends uploaded images to the
model server for fingerprinting and ranks stored samples against query images.

Settings resolve from flags, then AUTHORID_* environment variables, then
config.toml in the .authorid/ directory, then defaults. The SQLite database,
uploaded images and the session key default to the .authorid/ directory.

Examples:
  authorid serve
  authorid serve --listen :8080 --fingerprint-target http://model:5000
  authorid serve --storage-provider postgres --postgres-dsn postgres://localhost/authorid
  authorid serve --images-provider s3 --eventstream-provider kafka`

const serveShortDesc string = "Run the authorid API server"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, serveFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	for _, key := range serveFlags {
		config.AddStringFlag(cmd, config.DefaultFlags, key, nil)
	}

	return cmd
}

func (c *serveCommander) run() error {
	logFile, err := c.setupLogger()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ddm := dotdir.NewManager()
	dir, err := ddm.Target(c.configDir)
	if err != nil {
		return err
	}

	secret, err := ddm.EnsureSecretKey(c.configDir)
	if err != nil {
		return err
	}

	fingerprinter, err := c.newFingerprinter()
	if err != nil {
		return err
	}
	defer fingerprinter.Close()

	driver, err := c.newStorageDriver(dir)
	if err != nil {
		return err
	}
	defer driver.Close()

	images, err := c.newImageStore(dir)
	if err != nil {
		return err
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:    c.cfg.API.Listen,
		Fingerprinter: fingerprinter,
		Images:        images,
		Publisher:     publisher,
		SecretKey:     secret,
	}, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// setupLogger builds the console logger and, when log.file is set, tees JSON
// logs into a daily rotated file. The returned closer may be nil.
func (c *serveCommander) setupLogger() (io.Closer, error) {
	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	if c.cfg.Log.File == "" {
		c.logger = console
		return nil, nil
	}

	f, err := logger.RotatingFile(c.cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(
		console,
		logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f)),
	)

	return f, nil
}

var (
	errMissingSetting  = errors.New("missing required setting")
	errUnknownProvider = errors.New("unknown provider")
)
