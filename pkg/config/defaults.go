package config

const (
	defaultAPIListen = ":5001"

	defaultFingerprintTarget  = "http://localhost:5000"
	defaultFingerprintPath    = "/"
	defaultFingerprintTimeout = "30s"

	defaultStorageProvider = "sqlite"
	defaultImagesProvider  = "local"
	defaultS3Region        = "us-east-1"

	defaultEventstreamProvider = "nop"
	defaultEventstreamBrokers  = "localhost:9092"
	defaultEventstreamTopic    = "authorid.samples"
)

var (
	// StorageProviders lists the accepted storage.provider values.
	StorageProviders = []string{"inmemory", "sqlite", "postgres"}

	// ImageProviders lists the accepted images.provider values.
	ImageProviders = []string{"local", "s3"}

	// EventstreamProviders lists the accepted eventstream.provider values.
	EventstreamProviders = []string{"nop", "kafka"}
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Paths that live in
// the dot directory are left empty and resolved at startup.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Fingerprint: FingerprintConfig{
			Target:  defaultFingerprintTarget,
			Path:    defaultFingerprintPath,
			Timeout: defaultFingerprintTimeout,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Images: ImagesConfig{
			Provider: defaultImagesProvider,
			S3Region: defaultS3Region,
		},
		Eventstream: EventstreamConfig{
			Provider: defaultEventstreamProvider,
			Brokers:  defaultEventstreamBrokers,
			Topic:    defaultEventstreamTopic,
		},
	}
}
