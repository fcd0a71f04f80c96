package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
)

const (
	secretKeyFile = "key.txt"
)

// EnsureSecretKey returns the session secret stored in a target
// .authorid/key.txt, generating and persisting a new one on first use.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) EnsureSecretKey(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, secretKeyFile)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("secret key file %s is empty", path)
		}
		return key, nil

	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("reading secret key: %w", err)
	}

	key := encryptcookie.GenerateKey()
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing secret key: %w", err)
	}

	return key, nil
}
