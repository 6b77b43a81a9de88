package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Variables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("IDGATE_DATABASE_DSN", "postgres://env")
	t.Setenv("IDGATE_TOKEN_TTL", "2h")
	t.Setenv("IDGATE_MAX_UPLOAD_BYTES", "2048")

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c, nil))

	assert.Equal(t, "postgres://env", c.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, int64(2048), c.MaxUploadBytes)
	assert.Equal(t, "secretKey", c.SecretKey)
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv writes into the process environment; register for cleanup.
	t.Setenv("IDGATE_S3_PROOF_BUCKET", "")
	require.NoError(t, os.Unsetenv("IDGATE_S3_PROOF_BUCKET"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IDGATE_S3_PROOF_BUCKET=proofs\n"), 0o600))

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c, nil))

	assert.Equal(t, "proofs", c.S3ProofBucket)
}

func TestParseEnv_ExplicitMissingFile(t *testing.T) {
	chdir(t, t.TempDir())

	var c Config
	c.LoadDefaults()
	require.Error(t, parseEnv(&c, []string{"-env", "missing.env"}))
}
