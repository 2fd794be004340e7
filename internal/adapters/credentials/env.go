// Package credentials loads API credentials from the environment, optionally
// seeded from a .env file.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/manthysbr/jobpilot/internal/config"
	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
)

const (
	KeyEnv    = "TAILORMYJOB_API_KEY"
	SecretEnv = "TAILORMYJOB_API_SECRET"
)

var ErrMissingCredentials = errors.New("missing credentials")

// EnvProvider reads the key/secret pair from environment variables. Values
// in the .env file never override variables that are already set. Secrets
// stored with the "enc:" prefix are decrypted with the configured key.
type EnvProvider struct {
	envFile string
	lookup  func(string) (string, bool)
	secret  *config.SecretKey
}

var _ ports.CredentialProvider = (*EnvProvider)(nil)

// NewEnvProvider creates a provider. envFile may be empty; secret may be nil
// when no encrypted values are expected.
func NewEnvProvider(envFile string, secret *config.SecretKey) *EnvProvider {
	return &EnvProvider{
		envFile: envFile,
		lookup:  os.LookupEnv,
		secret:  secret,
	}
}

// LoadEnvFile exports the variables in path without overriding ones that
// are already set. An empty path or a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (p *EnvProvider) Credentials(_ context.Context) (domain.Credentials, error) {
	if err := LoadEnvFile(p.envFile); err != nil {
		return domain.Credentials{}, err
	}

	key, _ := p.lookup(KeyEnv)
	secret, _ := p.lookup(SecretEnv)
	if key == "" || secret == "" {
		return domain.Credentials{}, fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, KeyEnv, SecretEnv)
	}

	key, err := p.decrypt(key)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt %s: %w", KeyEnv, err)
	}
	secret, err = p.decrypt(secret)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt %s: %w", SecretEnv, err)
	}

	return domain.Credentials{Key: key, Secret: secret}, nil
}

func (p *EnvProvider) decrypt(v string) (string, error) {
	if !config.IsEncrypted(v) {
		return v, nil
	}
	if p.secret == nil {
		return "", fmt.Errorf("value is encrypted but no secret key is configured (set %s)", config.SecretKeyEnv)
	}
	return p.secret.Decrypt(v)
}
