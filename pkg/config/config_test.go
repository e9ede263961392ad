package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return configPath
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
global:
  log_level: info
extract:
  batch_tag: original-tag
  input_list: ./original-files.txt
  reports:
    local:
      root_dir: /data/original
database:
  driver: sqlite
  sqlite:
    path: ./original.db
api:
  server:
    listen: ":9000"
    cors_origins:
      - https://example.com
    rate_limit:
      enabled: false
      requests_per_minute: 30
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "original-tag", cfg.Extract.BatchTag)
				assert.Equal(t, "./original-files.txt", cfg.Extract.InputList)
				assert.Equal(t, "/data/original", cfg.Extract.Reports.Local.RootDir)
				assert.Equal(t, "./original.db", cfg.Database.SQLite.Path)
				assert.Equal(t, []string{"https://example.com"}, cfg.API.Server.CORSOrigins)
				assert.Equal(t, 30, cfg.API.Server.RateLimit.RequestsPerMinute)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"HARNESSOOR_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "nested field override - reports.local.root_dir",
			envVars: map[string]string{
				"HARNESSOOR_EXTRACT_REPORTS_LOCAL_ROOT_DIR": "/data/custom",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/custom", cfg.Extract.Reports.Local.RootDir)
			},
		},
		{
			name: "boolean override - rate_limit.enabled",
			envVars: map[string]string{
				"HARNESSOOR_API_SERVER_RATE_LIMIT_ENABLED": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.API.Server.RateLimit.Enabled)
			},
		},
		{
			name: "integer override - requests_per_minute",
			envVars: map[string]string{
				"HARNESSOOR_API_SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE": "600",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 600, cfg.API.Server.RateLimit.RequestsPerMinute)
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"HARNESSOOR_EXTRACT_BATCH_TAG":     "env-tag",
				"HARNESSOOR_DATABASE_SQLITE_PATH": "/tmp/env.db",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env-tag", cfg.Extract.BatchTag)
				assert.Equal(t, "/tmp/env.db", cfg.Database.SQLite.Path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsAppliedWhenEmpty(t *testing.T) {
	configPath := writeConfig(t, `
extract:
  batch_tag: run-1
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultInputList, cfg.Extract.InputList)
	require.NotNil(t, cfg.Extract.Reports.Local)
	assert.Equal(t, DefaultReportsDir, cfg.Extract.Reports.Local.RootDir)
	assert.Nil(t, cfg.Extract.Reports.S3)
	assert.Equal(t, DefaultDatabaseDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.Database.SQLite.Path)
	assert.Nil(t, cfg.API)
	assert.Nil(t, cfg.Upload)

	require.NoError(t, cfg.ValidateExtract())
}

func TestLoad_EnvVarOverridesDefaults(t *testing.T) {
	t.Setenv("HARNESSOOR_GLOBAL_LOG_LEVEL", "warn")
	t.Setenv("HARNESSOOR_EXTRACT_BATCH_TAG", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Global.LogLevel)
	assert.Equal(t, "from-env", cfg.Extract.BatchTag)
}

func TestLoad_EnvVarSetsKeysMissingFromFile(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "local reports root dir",
			envVars: map[string]string{
				"HARNESSOOR_EXTRACT_REPORTS_LOCAL_ROOT_DIR": "/data/reports",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Extract.Reports.Local)
				assert.Equal(t, "/data/reports", cfg.Extract.Reports.Local.RootDir)
				assert.Nil(t, cfg.Extract.Reports.S3)
			},
		},
		{
			name: "s3 reports via squashed connection keys",
			envVars: map[string]string{
				"HARNESSOOR_EXTRACT_REPORTS_S3_BUCKET": "reports",
				"HARNESSOOR_EXTRACT_REPORTS_S3_PREFIX": "svcomp",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Extract.Reports.S3)
				assert.Equal(t, "reports", cfg.Extract.Reports.S3.Bucket)
				assert.Equal(t, "svcomp", cfg.Extract.Reports.S3.Prefix)
				assert.Nil(t, cfg.Extract.Reports.Local)
			},
		},
		{
			name: "api section",
			envVars: map[string]string{
				"HARNESSOOR_API_SERVER_LISTEN":       ":9999",
				"HARNESSOOR_API_SERVER_CORS_ORIGINS": "https://a.example,https://b.example",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.API)
				assert.Equal(t, ":9999", cfg.API.Server.Listen)
				assert.Equal(t, []string{"https://a.example", "https://b.example"},
					cfg.API.Server.CORSOrigins)
				assert.Equal(t, DefaultRequestsPerMinute, cfg.API.Server.RateLimit.RequestsPerMinute)
			},
		},
		{
			name: "upload section",
			envVars: map[string]string{
				"HARNESSOOR_UPLOAD_S3_ENABLED": "true",
				"HARNESSOOR_UPLOAD_S3_BUCKET":  "out",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Upload)
				require.NotNil(t, cfg.Upload.S3)
				assert.True(t, cfg.Upload.S3.Enabled)
				assert.Equal(t, "out", cfg.Upload.S3.Bucket)
			},
		},
		{
			name: "postgres settings",
			envVars: map[string]string{
				"HARNESSOOR_DATABASE_DRIVER":        "postgres",
				"HARNESSOOR_DATABASE_POSTGRES_HOST": "db.internal",
				"HARNESSOOR_DATABASE_POSTGRES_PORT": "5433",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres", cfg.Database.Driver)
				assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
				assert.Equal(t, 5433, cfg.Database.Postgres.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load("")
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestLoad_S3Sections(t *testing.T) {
	configPath := writeConfig(t, `
extract:
  batch_tag: run-1
  reports:
    s3:
      bucket: reports-bucket
      region: eu-west-1
      prefix: svcomp
      force_path_style: true
upload:
  s3:
    enabled: true
    bucket: out-bucket
    secret_access_key: hunter2
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Nil(t, cfg.Extract.Reports.Local)
	require.NotNil(t, cfg.Extract.Reports.S3)
	assert.Equal(t, "reports-bucket", cfg.Extract.Reports.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Extract.Reports.S3.Region)
	assert.Equal(t, "svcomp", cfg.Extract.Reports.S3.Prefix)
	assert.True(t, cfg.Extract.Reports.S3.ForcePathStyle)

	require.NotNil(t, cfg.Upload)
	require.NotNil(t, cfg.Upload.S3)
	assert.Equal(t, DefaultUploadPrefix, cfg.Upload.S3.Prefix)

	require.NoError(t, cfg.ValidateExtract())
	require.NoError(t, cfg.ValidateUpload())

	out, err := cfg.MarshalRedactedYAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.Contains(t, string(out), "out-bucket")
	assert.Equal(t, "hunter2", cfg.Upload.S3.SecretAccessKey, "original must not be modified")
}

func TestConfig_ValidateExtract(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Extract: ExtractConfig{BatchTag: "run-1"}}
		cfg.applyDefaults()

		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:      "missing batch tag",
			mutate:    func(c *Config) { c.Extract.BatchTag = "" },
			errSubstr: "batch_tag is required",
		},
		{
			name:      "batch tag with separator",
			mutate:    func(c *Config) { c.Extract.BatchTag = "../etc" },
			errSubstr: "must not contain path separators",
		},
		{
			name: "both report backends",
			mutate: func(c *Config) {
				c.Extract.Reports.S3 = &S3ReportsConfig{
					S3ConnectionConfig: S3ConnectionConfig{Bucket: "b"},
				}
			},
			errSubstr: "cannot specify both",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Extract.Reports.Local = nil
				c.Extract.Reports.S3 = &S3ReportsConfig{}
			},
			errSubstr: "bucket is required",
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			errSubstr: "unsupported database driver",
		},
		{
			name:      "postgres without host",
			mutate:    func(c *Config) { c.Database.Driver = "postgres" },
			errSubstr: "postgres.host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.ValidateExtract()
			if tt.errSubstr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateAPI(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	require.Error(t, cfg.ValidateAPI())

	cfg.API = &APIConfig{}
	cfg.applyDefaults()

	require.NoError(t, cfg.ValidateAPI())
	assert.Equal(t, DefaultAPIListen, cfg.API.Server.Listen)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.API.Server.RateLimit.RequestsPerMinute)
}
