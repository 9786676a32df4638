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
		"endpoint_addr_http": "www.example:9000",
		"database_dsn":       "postgres://gw@db/gw",
		"jwks_url":           "https://auth.example.com/certs",
		"audience":           "aud-tag",
		"key_cache_ttl":      "5m",
		"fallback_email":     "admin@internal",
		"schema_mode":        "strict",
		"mongo_uri":          "mongodb://docs:27017",
		"neo4j_uri":          "bolt://graph:7687",
		"s3_bucket":          "bucket",
		"photo_api_base_url": "http://photos:2342",
		"provision_timeout":  "7s",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://gw@db/gw", cfg.DatabaseDSN)
		assert.Equal(t, "https://auth.example.com/certs", cfg.JWKSURL)
		assert.Equal(t, "aud-tag", cfg.Audience)
		assert.Equal(t, 5*time.Minute, cfg.KeyCacheTTL)
		assert.Equal(t, "admin@internal", cfg.FallbackEmail)
		assert.Equal(t, "strict", cfg.SchemaMode)
		assert.Equal(t, "mongodb://docs:27017", cfg.MongoURI)
		assert.Equal(t, "bolt://graph:7687", cfg.Neo4jURI)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "http://photos:2342", cfg.PhotoAPIBaseURL)
		assert.Equal(t, 7*time.Second, cfg.ProvisionTimeout)
	})

	t.Run("absent fields keep defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "userdata", cfg.S3Bucket, "overridden in file")
		assert.Equal(t, "admin", cfg.S3RootUser, "not in file, default kept")
		assert.Equal(t, 5, cfg.ProvisionMaxInFlight)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrHTTP: "defaults:1234"}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin",
		"-a", ":9999",
		"-d", "postgres://flag@db/gw",
		"-j", "https://flags.example.com/certs",
		"-w", "flag-aud",
		"-b", "flagbucket",
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://flag@db/gw", cfg.DatabaseDSN)
	assert.Equal(t, "https://flags.example.com/certs", cfg.JWKSURL)
	assert.Equal(t, "flag-aud", cfg.Audience)
	assert.Equal(t, "flagbucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region, "untouched flag keeps default")
}

func TestParseEnv(t *testing.T) {
	t.Setenv("GATEWAY_FALLBACK_EMAIL", "ops@internal")
	t.Setenv("GATEWAY_SCHEMA_MODE", "strict")
	t.Setenv("GATEWAY_SEAL_SECRET", "env-secret")
	t.Setenv("GATEWAY_PHOTO_ADMIN_KEY", "env-admin-key")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "ops@internal", cfg.FallbackEmail)
	assert.Equal(t, "strict", cfg.SchemaMode)
	assert.Equal(t, "env-secret", cfg.SealSecret)
	assert.Equal(t, "env-admin-key", cfg.PhotoAdminKey)
	assert.Empty(t, cfg.RequiredScope, "unset env leaves field alone")
}

func TestLoadConfig_EnvWinsOverJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"schema_mode": "lenient",
	})
	os.Args = []string{"testbin", "-config", path}
	t.Setenv("GATEWAY_SCHEMA_MODE", "strict")

	cfg := LoadConfig()
	assert.Equal(t, "strict", cfg.SchemaMode)
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, 10*time.Minute, cfg.KeyCacheTTL)
	assert.Equal(t, "lenient", cfg.SchemaMode)
	assert.Empty(t, cfg.FallbackEmail, "bypass must be opt-in")
	assert.Empty(t, cfg.AssertionHeader, "verifier falls back to its default header")
}
