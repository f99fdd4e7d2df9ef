package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"database_dsn":                "identity.db",
		"project_id":                  1012,
		"segment_id":                  "segment-a",
		"assertion_key_id":            551,
		"assertion_key_file":          "key.pem",
		"assertion_validity_duration": "120s",
		"s3_root_user":                "user",
		"s3_root_password":            "password",
		"s3_bucket":                   "bucket",
		"s3_region":                   "region",
		"s3_base_endpoint":            "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "identity.db", cfg.DatabaseDSN)
		assert.Equal(t, 1012, cfg.ProjectID)
		assert.Equal(t, "segment-a", cfg.SegmentID)
		assert.Equal(t, 551, cfg.AssertionKeyID)
		assert.Equal(t, "key.pem", cfg.AssertionKeyFile)
		assert.Equal(t, 120*time.Second, cfg.AssertionValidityDuration)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			DatabaseDSN:               "identity.db",
			ProjectID:                 7,
			SegmentID:                 "untouched",
			AssertionKeyID:            9,
			AssertionKeyFile:          "orig.pem",
			AssertionValidityDuration: 2 * time.Minute,
			S3RootUser:                "s3root",
		}
		parseJson(cfg)

		assert.Equal(t, "identity.db", cfg.DatabaseDSN)
		assert.Equal(t, 7, cfg.ProjectID)
		assert.Equal(t, "untouched", cfg.SegmentID)
		assert.Equal(t, 9, cfg.AssertionKeyID)
		assert.Equal(t, "orig.pem", cfg.AssertionKeyFile)
		assert.Equal(t, 2*time.Minute, cfg.AssertionValidityDuration)
		assert.Equal(t, "s3root", cfg.S3RootUser)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
