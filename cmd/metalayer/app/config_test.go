package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metalayer/pkg/canonicalize"
	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
	"github.com/agentstation/metalayer/pkg/metadata"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".metalayer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePath, config.StorePath)
	assert.Equal(t, metadata.PolicyAppendOnly, config.Policy)
	assert.Equal(t, constants.DataSourceLibraryStaff, config.DataSource)
	assert.Equal(t, canonicalize.KindHeuristic, config.Canonicalizer.Kind)
	assert.Equal(t, DefaultGemini, config.Canonicalizer.Model)
	assert.Equal(t, constants.DefaultHTTPTimeout, config.FetchTimeout)
	assert.Equal(t, "auto", config.LogFormat)
	assert.False(t, config.MirrorEnabled())
	assert.Empty(t, config.Analytics)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
store_path: /var/lib/metalayer/catalog.yaml
policy: license-source
data_source: Overdrive
collection: Overdrive Main
libraries: [Main Street, Riverside]
fetch:
  timeout: 90s
analytics:
  - kind: log
  - kind: asynq
    options:
      redis_addr: localhost:6379
canonicalizer:
  kind: none
minio:
  endpoint: localhost:9000
  bucket: covers
`)
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	config, err := loadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, "/var/lib/metalayer/catalog.yaml", config.StorePath)
	assert.Equal(t, metadata.PolicyLicenseSource, config.Policy)
	assert.Equal(t, constants.DataSourceOverdrive, config.DataSource)
	assert.Equal(t, "Overdrive Main", config.Collection)
	assert.Equal(t, []string{"Main Street", "Riverside"}, config.Libraries)
	assert.Equal(t, 90*time.Second, config.FetchTimeout)

	require.Len(t, config.Analytics, 2)
	assert.Equal(t, "asynq", config.Analytics[1].Kind)
	assert.Equal(t, "localhost:6379", config.Analytics[1].Options["redis_addr"])

	assert.Equal(t, canonicalize.KindNone, config.Canonicalizer.Kind)
	assert.True(t, config.MirrorEnabled())
	assert.Equal(t, "covers", config.MinIO.Bucket)
	assert.Equal(t, "minio", config.MinIO.AccessKey)
	assert.Equal(t, "secret", config.MinIO.SecretKey)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STORE_PATH", "env-catalog.yaml")
	t.Setenv("POLICY", "metadata-source")
	t.Setenv("VERBOSE", "true")
	t.Setenv("CANONICALIZER_KIND", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")

	config, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "env-catalog.yaml", config.StorePath)
	assert.Equal(t, metadata.PolicyMetadataSource, config.Policy)
	assert.True(t, config.Verbose)
	assert.Equal(t, canonicalize.KindGemini, config.Canonicalizer.Kind)
	assert.Equal(t, "key", config.Canonicalizer.APIKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown policy", "policy: overwrite-everything\n"},
		{"gemini without key", "canonicalizer:\n  kind: gemini\n"},
		{"malformed yaml", "policy: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "")
			_, err := loadConfig(viper.New(), writeConfig(t, tt.body))
			assert.True(t, errors.IsConfigError(err), "got %v", err)
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "info"}
	config.UpdateFromFlags(true, false, true, "", "")
	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
	assert.Equal(t, "yaml", config.Format)
	assert.Equal(t, "info", config.LogLevel)

	config.UpdateFromFlags(false, true, false, "json", "debug")
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "debug", config.LogLevel)
}
