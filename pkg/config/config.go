package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to environment variables overriding config keys.
	// Nested keys are joined with underscores, e.g. HARNESSOOR_GLOBAL_LOG_LEVEL.
	EnvPrefix = "HARNESSOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultInputList is the default path of the harness file list.
	DefaultInputList = "files.txt"

	// DefaultReportsDir is the default directory containing harnesses/.
	DefaultReportsDir = "."

	// DefaultDatabaseDriver is the default store driver.
	DefaultDatabaseDriver = "sqlite"

	// DefaultSQLitePath is the default path of the output database.
	DefaultSQLitePath = "harness-data.db"

	// DefaultAPIListen is the default API listen address.
	DefaultAPIListen = ":8080"

	// DefaultRequestsPerMinute is the default per-IP API rate limit.
	DefaultRequestsPerMinute = 120

	// DefaultUploadPrefix is the default S3 key prefix for uploads.
	DefaultUploadPrefix = "harness-data"

	redacted = "********"
)

// Config is the root configuration for harnessoor.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Upload   *UploadConfig  `yaml:"upload,omitempty" mapstructure:"upload"`
	API      *APIConfig     `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ExtractConfig contains settings for a batch extraction run.
type ExtractConfig struct {
	// BatchTag identifies the run whose reports are read.
	BatchTag string `yaml:"batch_tag" mapstructure:"batch_tag"`
	// InputList is a text file with one harness path per line.
	InputList string        `yaml:"input_list" mapstructure:"input_list"`
	Reports   ReportsConfig `yaml:"reports" mapstructure:"reports"`
}

// ReportsConfig selects where harness reports are read from.
// Only one backend may be configured.
type ReportsConfig struct {
	Local *LocalReportsConfig `yaml:"local,omitempty" mapstructure:"local"`
	S3    *S3ReportsConfig    `yaml:"s3,omitempty" mapstructure:"s3"`
}

// LocalReportsConfig reads reports from {root_dir}/harnesses/.
type LocalReportsConfig struct {
	RootDir string `yaml:"root_dir" mapstructure:"root_dir"`
}

// S3ConnectionConfig holds S3-compatible endpoint settings.
type S3ConnectionConfig struct {
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// S3ReportsConfig reads reports from {prefix}/harnesses/ in a bucket.
type S3ReportsConfig struct {
	S3ConnectionConfig `yaml:",inline" mapstructure:",squash"`
	Prefix             string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// UploadConfig contains settings for publishing the dataset.
type UploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig contains S3 upload settings.
type S3UploadConfig struct {
	S3ConnectionConfig `yaml:",inline" mapstructure:",squash"`
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	Prefix             string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	StorageClass       string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL                string `yaml:"acl,omitempty" mapstructure:"acl"`
}

// DatabaseConfig contains connection settings for the output store.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	// Owner is an optional "UID:GID" applied to the database file.
	Owner string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// APIConfig contains the read-only API server settings.
type APIConfig struct {
	Server APIServerConfig `yaml:"server" mapstructure:"server"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// Load reads the configuration file at path, applies environment overrides
// and defaults. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys need to be known to viper for env overrides to apply.
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("extract.batch_tag", "")
	v.SetDefault("extract.input_list", DefaultInputList)
	v.SetDefault("database.driver", DefaultDatabaseDriver)
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.sqlite.owner", "")

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// bindEnvKeys registers every leaf key of t with viper so the matching
// environment variable is picked up even when the key is absent from the
// config file. Unset variables leave their section out of AllSettings.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := range t.NumField() {
		f := t.Field(i)

		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if opts == "squash" {
			bindEnvKeys(v, ft, prefix)

			continue
		}

		if name == "" {
			name = strings.ToLower(f.Name)
		}

		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		if ft.Kind() == reflect.Struct {
			bindEnvKeys(v, ft, key)

			continue
		}

		_ = v.BindEnv(key)
	}
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Extract.InputList == "" {
		c.Extract.InputList = DefaultInputList
	}

	if c.Extract.Reports.Local == nil && c.Extract.Reports.S3 == nil {
		c.Extract.Reports.Local = &LocalReportsConfig{}
	}

	if c.Extract.Reports.Local != nil && c.Extract.Reports.Local.RootDir == "" {
		c.Extract.Reports.Local.RootDir = DefaultReportsDir
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}

	if c.Upload != nil && c.Upload.S3 != nil && c.Upload.S3.Prefix == "" {
		c.Upload.S3.Prefix = DefaultUploadPrefix
	}

	if c.API != nil {
		if c.API.Server.Listen == "" {
			c.API.Server.Listen = DefaultAPIListen
		}

		if c.API.Server.RateLimit.RequestsPerMinute == 0 {
			c.API.Server.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
		}
	}
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	return nil
}

// ValidateExtract checks the settings needed by an extraction run.
func (c *Config) ValidateExtract() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Extract.BatchTag == "" {
		return fmt.Errorf("extract.batch_tag is required")
	}

	if strings.ContainsAny(c.Extract.BatchTag, `/\`) {
		return fmt.Errorf("extract.batch_tag %q must not contain path separators",
			c.Extract.BatchTag)
	}

	if c.Extract.InputList == "" {
		return fmt.Errorf("extract.input_list is required")
	}

	reports := c.Extract.Reports
	if reports.Local != nil && reports.S3 != nil {
		return fmt.Errorf("extract.reports: cannot specify both local and s3")
	}

	if reports.S3 != nil && reports.S3.Bucket == "" {
		return fmt.Errorf("extract.reports.s3.bucket is required")
	}

	return nil
}

// ValidateUpload checks the settings needed to publish the dataset.
func (c *Config) ValidateUpload() error {
	if c.Upload == nil || c.Upload.S3 == nil || !c.Upload.S3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	if c.Upload.S3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required")
	}

	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("upload requires the sqlite database driver, got %q",
			c.Database.Driver)
	}

	return nil
}

// ValidateAPI checks the settings needed by the API server.
func (c *Config) ValidateAPI() error {
	if c.API == nil {
		return fmt.Errorf("api section is required in config")
	}

	if err := c.Validate(); err != nil {
		return err
	}

	if c.API.Server.RateLimit.Enabled && c.API.Server.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("api.server.rate_limit.requests_per_minute must be positive")
	}

	return nil
}

// MarshalRedactedYAML renders the configuration with secrets masked.
func (c *Config) MarshalRedactedYAML() ([]byte, error) {
	cp := *c

	if cp.Database.Postgres.Password != "" {
		cp.Database.Postgres.Password = redacted
	}

	if s3 := cp.Extract.Reports.S3; s3 != nil {
		masked := *s3
		masked.S3ConnectionConfig = masked.redact()
		cp.Extract.Reports.S3 = &masked
	}

	if cp.Upload != nil && cp.Upload.S3 != nil {
		up := *cp.Upload
		masked := *up.S3
		masked.S3ConnectionConfig = masked.redact()
		up.S3 = &masked
		cp.Upload = &up
	}

	out, err := yaml.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return out, nil
}

func (s S3ConnectionConfig) redact() S3ConnectionConfig {
	if s.SecretAccessKey != "" {
		s.SecretAccessKey = redacted
	}

	return s
}
