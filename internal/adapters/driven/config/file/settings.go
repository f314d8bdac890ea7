package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOOKCHAT_"

// DefaultDir returns ~/.bookchat.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".bookchat"), nil
}

// LoadSettings builds the process settings in three layers: built-in
// defaults, the TOML file at path, then environment overrides. A .env file
// in the working directory is loaded into the environment first; variables
// already set are not replaced.
//
// If path is empty, ~/.bookchat/config.toml is used. A missing file is not an error.
func LoadSettings(path string) (domain.Settings, error) {
	baseDir, err := DefaultDir()
	if err != nil {
		return domain.Settings{}, err
	}
	if path == "" {
		path = filepath.Join(baseDir, "config.toml")
	}

	settings := domain.DefaultSettings(filepath.Join(baseDir, "data"))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return domain.Settings{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return domain.Settings{}, fmt.Errorf("%w: parsing config %s: %w", domain.ErrInvalidInput, path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Settings{}, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnv(&settings); err != nil {
		return domain.Settings{}, err
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// SaveSettings writes settings as TOML, creating the parent directory.
func SaveSettings(path string, settings domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnv overlays BOOKCHAT_* variables. Secrets are expected to arrive this way.
func applyEnv(s *domain.Settings) error {
	strs := map[string]*string{
		"SERVER_ADDR":        &s.Server.Addr,
		"DATA_DIR":           &s.Storage.DataDir,
		"VECTOR_DIR":         &s.Storage.VectorDir,
		"POSTGRES_DSN":       &s.Storage.PostgresDSN,
		"EMBEDDING_MODEL":    &s.Embedding.Model,
		"EMBEDDING_BASE_URL": &s.Embedding.BaseURL,
		"EMBEDDING_API_KEY":  &s.Embedding.APIKey,
		"LLM_MODEL":          &s.LLM.Model,
		"LLM_BASE_URL":       &s.LLM.BaseURL,
		"LLM_API_KEY":        &s.LLM.APIKey,
		"REDIS_ADDR":         &s.Queue.RedisAddr,
		"JWT_SECRET":         &s.Auth.JWTSecret,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "VECTOR_BACKEND"); ok {
		s.Storage.VectorBackend = domain.VectorBackend(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "EMBEDDING_PROVIDER"); ok {
		s.Embedding.Provider = domain.AIProvider(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LLM_PROVIDER"); ok {
		s.LLM.Provider = domain.AIProvider(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "QUEUE_BACKEND"); ok {
		s.Queue.Backend = domain.QueueBackend(v)
	}

	ints := map[string]*int{
		"TOP_K":         &s.Retrieval.TopK,
		"QUEUE_WORKERS": &s.Queue.Workers,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", domain.ErrInvalidInput, EnvPrefix, key, v)
		}
		*dst = n
	}
	return nil
}
