package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "askdesk", "secrets.json")
}

const tokenSecretKey = "api_token"

// GetAPIToken returns the bearer token protecting the management API,
// generating and persisting one on first use. The ASKDESK_API_TOKEN
// environment variable overrides the stored value.
func GetAPIToken() (string, error) {
	return getAPITokenFrom(secretsFilePath())
}

func getAPITokenFrom(path string) (string, error) {
	if env := os.Getenv("ASKDESK_API_TOKEN"); env != "" {
		return env, nil
	}

	secrets := readSecrets(path)
	if tok, ok := secrets[tokenSecretKey]; ok && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	secrets[tokenSecretKey] = tok
	if err := writeSecrets(path, secrets); err != nil {
		return "", fmt.Errorf("persisting API token: %w", err)
	}
	return tok, nil
}

func readSecrets(path string) map[string]string {
	secrets := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return secrets
	}
	_ = json.Unmarshal(data, &secrets)
	return secrets
}

func writeSecrets(path string, secrets map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
