package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g.,
// --fingerprint-target on both "authorid serve" and "authorid fingerprint").
type Flag struct {
	// Name is the long flag name (e.g. "fingerprint-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "fingerprint.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag and BindRegisteredFlags to
// avoid typos or drift from one command to another.
const (
	FlagListen              = "listen"
	FlagFingerprintTarget   = "fingerprint-target"
	FlagFingerprintPath     = "fingerprint-path"
	FlagFingerprintTimeout  = "fingerprint-timeout"
	FlagStorageProvider     = "storage-provider"
	FlagSQLite              = "sqlite"
	FlagPostgresDSN         = "postgres-dsn"
	FlagImagesProvider      = "images-provider"
	FlagImagesDir           = "images-dir"
	FlagEventstreamProvider = "eventstream-provider"
	FlagLogFile             = "log-file"
)

// DefaultFlags is the registry shared by every command. Commands register
// only the entries they need.
var DefaultFlags = FlagSet{
	FlagListen:              {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagFingerprintTarget:   {Name: "fingerprint-target", Shorthand: "f", ViperKey: "fingerprint.target", Description: "Model server base URL"},
	FlagFingerprintPath:     {Name: "fingerprint-path", ViperKey: "fingerprint.path", Description: "Model server request path"},
	FlagFingerprintTimeout:  {Name: "fingerprint-timeout", ViperKey: "fingerprint.timeout", Description: "Model server request timeout"},
	FlagStorageProvider:     {Name: "storage-provider", ViperKey: "storage.provider", Description: "Sample storage (inmemory, sqlite, postgres)"},
	FlagSQLite:              {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: <config dir>/authorid.db)"},
	FlagPostgresDSN:         {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagImagesProvider:      {Name: "images-provider", ViperKey: "images.provider", Description: "Image storage (local, s3)"},
	FlagImagesDir:           {Name: "images-dir", ViperKey: "images.dir", Description: "Directory for uploaded images (default: <config dir>/images)"},
	FlagEventstreamProvider: {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Sample event publisher (nop, kafka)"},
	FlagLogFile:             {Name: "log-file", ViperKey: "log.file", Description: "Also write JSON logs to this file, rotated daily"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands. A nil target is allowed
// when the value is only read back through viper.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	if target == nil {
		target = new(string)
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}
