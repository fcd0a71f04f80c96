package servecmder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/authorid/authorid/pkg/eventstream"
	"github.com/authorid/authorid/pkg/eventstream/kafka"
	"github.com/authorid/authorid/pkg/eventstream/nop"
	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/fingerprint/modelserver"
	"github.com/authorid/authorid/pkg/imagestore"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/storage/inmemory"
	"github.com/authorid/authorid/pkg/storage/postgres"
	"github.com/authorid/authorid/pkg/storage/sqlite"
)

const (
	defaultDBName    = "authorid.db"
	defaultImagesDir = "images"
)

func (c *serveCommander) newFingerprinter() (fingerprint.Fingerprinter, error) {
	timeout, err := c.cfg.Fingerprint.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	client, err := modelserver.NewClient(modelserver.Config{
		BaseURL: c.cfg.Fingerprint.Target,
		Path:    c.cfg.Fingerprint.Path,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model server client: %w", err)
	}

	c.logger.Info("using model server", "endpoint", client.Endpoint(), "timeout", timeout)
	return client, nil
}

func (c *serveCommander) newStorageDriver(dir string) (storage.Driver, error) {
	ctx := context.Background()

	switch c.cfg.Storage.Provider {
	case "inmemory":
		c.logger.Warn("using in-memory storage, data is lost on shutdown")
		return inmemory.NewDriver(), nil

	case "postgres":
		if c.cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: storage.postgres_dsn", errMissingSetting)
		}
		driver, err := postgres.NewDriver(ctx, c.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	case "sqlite":
		path := c.cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(dir, defaultDBName)
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", path)
		return driver, nil

	default:
		return nil, fmt.Errorf("%w: storage.provider %q", errUnknownProvider, c.cfg.Storage.Provider)
	}
}

func (c *serveCommander) newImageStore(dir string) (imagestore.Store, error) {
	images := c.cfg.Images

	switch images.Provider {
	case "s3":
		if images.S3Bucket == "" {
			return nil, fmt.Errorf("%w: images.s3_bucket", errMissingSetting)
		}
		client, err := imagestore.NewS3Client(context.Background(), imagestore.S3Config{
			Bucket:   images.S3Bucket,
			Prefix:   images.S3Prefix,
			Region:   images.S3Region,
			Endpoint: images.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		c.logger.Info("using S3 image storage", "bucket", images.S3Bucket, "prefix", images.S3Prefix)
		return imagestore.NewS3(client, images.S3Bucket, images.S3Prefix), nil

	case "local":
		path := images.Dir
		if path == "" {
			path = filepath.Join(dir, defaultImagesDir)
		}
		store, err := imagestore.NewLocal(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create image store: %w", err)
		}
		c.logger.Info("using local image storage", "dir", store.Root())
		return store, nil

	default:
		return nil, fmt.Errorf("%w: images.provider %q", errUnknownProvider, images.Provider)
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	es := c.cfg.Eventstream

	switch es.Provider {
	case "kafka":
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: es.BrokerList(),
			Topic:   es.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		c.logger.Info("publishing sample events to kafka", "brokers", es.Brokers, "topic", es.Topic)
		return publisher, nil

	case "nop":
		return nop.NewPublisher(), nil

	default:
		return nil, fmt.Errorf("%w: eventstream.provider %q", errUnknownProvider, es.Provider)
	}
}
