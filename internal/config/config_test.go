package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_URL", "sqlite://test.db")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, AuthSchemeHMAC, cfg.AuthScheme)
	assert.Equal(t, "authenticated", cfg.JWTAudience)
	assert.Equal(t, 5*time.Minute, cfg.JWKSRefreshInterval)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, "mock_test_id_123", cfg.MockUserID)
	assert.Equal(t, UploadBackendLocal, cfg.UploadBackend)
	assert.Equal(t, 3, cfg.RetrievalTopK)
	assert.InDelta(t, 0.6, cfg.MinSimilarity, 1e-6)
	assert.Empty(t, cfg.DiagnosticKeywords)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_SCHEME", "JWKS")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("DIAGNOSTIC_KEYWORDS", " biopsy, ,staging ,")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("UPLOAD_BACKEND", "S3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthSchemeJWKS, cfg.AuthScheme)
	assert.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "https://proj.supabase.co/auth/v1/.well-known/jwks.json", cfg.JWKSURL)
	assert.Equal(t, []string{"biopsy", "staging"}, cfg.DiagnosticKeywords)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
	assert.Equal(t, UploadBackendS3, cfg.UploadBackend)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBURL:          "postgres://x",
			AuthScheme:     AuthSchemeHMAC,
			JWTSecret:      "s",
			UploadBackend:  UploadBackendLocal,
			MaxUploadBytes: 1,
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"no db":          func(c *Config) { c.DBURL = "" },
		"hmac no secret": func(c *Config) { c.JWTSecret = "" },
		"jwks no url":    func(c *Config) { c.AuthScheme = AuthSchemeJWKS },
		"bad scheme":     func(c *Config) { c.AuthScheme = "basic" },
		"gcs no bucket":  func(c *Config) { c.UploadBackend = UploadBackendGCS },
		"s3 no bucket":   func(c *Config) { c.UploadBackend = UploadBackendS3 },
		"bad backend":    func(c *Config) { c.UploadBackend = "ftp" },
		"zero limit":     func(c *Config) { c.MaxUploadBytes = 0 },
	}
	for name, mutate := range cases {
		c := valid()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}
