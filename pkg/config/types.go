package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the persistent authorid configuration stored as
// config.toml in the .authorid/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Fingerprint FingerprintConfig `toml:"fingerprint"`
	Storage     StorageConfig     `toml:"storage"`
	Images      ImagesConfig      `toml:"images"`
	Eventstream EventstreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// FingerprintConfig locates the model server that turns images into
// fingerprints. Timeout is a Go duration string such as "30s".
type FingerprintConfig struct {
	Target  string `toml:"target,omitempty"`
	Path    string `toml:"path,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// StorageConfig selects where users and samples are persisted.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ImagesConfig selects where uploaded images are kept.
type ImagesConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Dir        string `toml:"dir,omitempty"`
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
}

// EventstreamConfig selects where sample lifecycle events are published.
// Brokers is a comma-separated list of host:port pairs.
type EventstreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// LogConfig holds log sink settings.
type LogConfig struct {
	File string `toml:"file,omitempty"`
}

// BrokerList splits Brokers into its non-empty entries.
func (e EventstreamConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func oneOfKey(key string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = v
				return nil
			}
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (expected one of %s)", key, v, strings.Join(allowed, ", "))
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"fingerprint.target": stringKey(func(c *Config) *string { return &c.Fingerprint.Target }),
	"fingerprint.path":   stringKey(func(c *Config) *string { return &c.Fingerprint.Path }),
	"fingerprint.timeout": {
		get: func(c *Config) string { return c.Fingerprint.Timeout },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Fingerprint.Timeout = v
				return nil
			}
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for fingerprint.timeout: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("invalid value for fingerprint.timeout: must be positive, got %s", v)
			}
			c.Fingerprint.Timeout = v
			return nil
		},
	},

	"storage.provider":     oneOfKey("storage.provider", StorageProviders, func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"images.provider":    oneOfKey("images.provider", ImageProviders, func(c *Config) *string { return &c.Images.Provider }),
	"images.dir":         stringKey(func(c *Config) *string { return &c.Images.Dir }),
	"images.s3_bucket":   stringKey(func(c *Config) *string { return &c.Images.S3Bucket }),
	"images.s3_prefix":   stringKey(func(c *Config) *string { return &c.Images.S3Prefix }),
	"images.s3_region":   stringKey(func(c *Config) *string { return &c.Images.S3Region }),
	"images.s3_endpoint": stringKey(func(c *Config) *string { return &c.Images.S3Endpoint }),

	"eventstream.provider": oneOfKey("eventstream.provider", EventstreamProviders, func(c *Config) *string { return &c.Eventstream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.Eventstream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.Eventstream.Topic }),

	"log.file": stringKey(func(c *Config) *string { return &c.Log.File }),
}

// TimeoutDuration parses Timeout. An empty value yields zero so callers fall
// back to the client default.
func (f FingerprintConfig) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint timeout %q: %w", f.Timeout, err)
	}
	return d, nil
}
