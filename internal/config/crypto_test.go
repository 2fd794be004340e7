package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretKey_EncryptDecrypt(t *testing.T) {
	sk := NewSecretKey("test-secret-key-for-unit-tests")

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api_secret", "s3cr3t-abc123def456xyz"},
		{"empty", ""},
		{"long_secret", "very-long-api-secret-that-might-be-issued-by-an-enterprise-plan-1234567890"},
		{"special_chars", "sk-+/=!@#$%^&*()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := sk.Encrypt(tt.plaintext)
			require.NoError(t, err)

			if tt.plaintext == "" {
				assert.Empty(t, encrypted)
				return
			}

			assert.True(t, IsEncrypted(encrypted))
			assert.NotEqual(t, tt.plaintext, encrypted)

			decrypted, err := sk.Decrypt(encrypted)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestSecretKey_DecryptPlaintext(t *testing.T) {
	sk := NewSecretKey("test-key")

	result, err := sk.Decrypt("plain-text-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-text-value", result)
}

func TestSecretKey_WrongKey(t *testing.T) {
	encrypted, err := NewSecretKey("one").Encrypt("value")
	require.NoError(t, err)

	_, err = NewSecretKey("two").Decrypt(encrypted)
	assert.Error(t, err)
}

func TestLoadSecretKey(t *testing.T) {
	t.Run("env wins", func(t *testing.T) {
		t.Setenv(SecretKeyEnv, "from-env")
		sk, err := LoadSecretKey(filepath.Join(t.TempDir(), "unused.key"))
		require.NoError(t, err)

		enc, err := NewSecretKey("from-env").Encrypt("x")
		require.NoError(t, err)
		plain, err := sk.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, "x", plain)
	})

	t.Run("generated once and reused", func(t *testing.T) {
		t.Setenv(SecretKeyEnv, "")
		path := filepath.Join(t.TempDir(), "nested", "secret.key")

		first, err := LoadSecretKey(path)
		require.NoError(t, err)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		enc, err := first.Encrypt("value")
		require.NoError(t, err)

		second, err := LoadSecretKey(path)
		require.NoError(t, err)
		plain, err := second.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, "value", plain)
	})
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"sk-abc123def", "****3def"},
		{"sk-proj-very-long-key-12345", "****2345"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MaskSecret(tt.input), "MaskSecret(%q)", tt.input)
	}
}
