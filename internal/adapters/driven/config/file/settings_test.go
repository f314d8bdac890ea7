package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// isolate points HOME and the working directory at temp dirs so no real
// config or .env leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func TestLoadSettings_DefaultsWhenMissing(t *testing.T) {
	home := isolate(t)

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".bookchat", "data"), s.Storage.DataDir)
	assert.Equal(t, domain.VectorBackendSQLite, s.Storage.VectorBackend)
	assert.Equal(t, domain.DefaultTopK, s.Retrieval.TopK)
}

func TestLoadSettings_FileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[retrieval]
top_k = 8

[ingestion]
chunk_size = 500
chunk_overlap = 50
batch_size = 10

[queue]
backend = "redis"
redis_addr = "redis:6379"
`), 0600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Retrieval.TopK)
	assert.Equal(t, 500, s.Ingestion.ChunkSize)
	assert.Equal(t, domain.QueueBackendRedis, s.Queue.Backend)
	assert.Equal(t, "redis:6379", s.Queue.RedisAddr)
	// Untouched sections keep their defaults.
	assert.Equal(t, "nomic-embed-text", s.Embedding.Model)
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[retrieval]\ntop_k = 8\n"), 0600))
	t.Setenv("BOOKCHAT_TOP_K", "12")
	t.Setenv("BOOKCHAT_JWT_SECRET", "s3cret")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Retrieval.TopK)
	assert.Equal(t, "s3cret", s.Auth.JWTSecret)
}

func TestLoadSettings_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("BOOKCHAT_LLM_MODEL=mistral\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("BOOKCHAT_LLM_MODEL") })

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "mistral", s.LLM.Model)
}

func TestLoadSettings_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, os.WriteFile(path, []byte("[storage]\nvector_backend = \"faiss\"\n"), 0600))
	_, err := LoadSettings(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0600))
	_, err = LoadSettings(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	t.Setenv("BOOKCHAT_TOP_K", "many")
	require.NoError(t, os.WriteFile(path, nil, 0600))
	_, err = LoadSettings(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	want := domain.DefaultSettings("/srv/bookchat")
	want.Retrieval.TopK = 5
	require.NoError(t, SaveSettings(path, want))

	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
