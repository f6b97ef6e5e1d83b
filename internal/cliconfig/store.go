// Package cliconfig persists per-server CLI credentials under the user's
// home directory. Credentials are keyed by server host, so one config file
// can hold sessions for several EnrollHub deployments.
package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var ErrCredentialNotFound = fmt.Errorf("credential not found")

type Credential struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

type CLIConfig struct {
	Credentials map[string]*Credential `json:"credentials"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".enrollhub", "config.json"), nil
}

func Load() (*CLIConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file '%s': %w", path, err)
	}

	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config file '%s': %w", path, err)
	}
	return &cfg, nil
}

// LoadOrNew is Load, except a missing config file yields an empty config
// instead of an error.
func LoadOrNew() (*CLIConfig, error) {
	cfg, err := Load()
	if errors.Is(err, os.ErrNotExist) {
		return &CLIConfig{}, nil
	}
	return cfg, err
}

func Save(cfg *CLIConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory '%s': %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	// the file holds session tokens, keep it owner-only
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file '%s': %w", path, err)
	}
	return nil
}

// SetCredential stores a session token for the given server URL and returns
// the host the credential is keyed by.
func (c *CLIConfig) SetCredential(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	if c.Credentials == nil {
		c.Credentials = make(map[string]*Credential)
	}
	c.Credentials[u.Host] = &Credential{
		Token:   token,
		SavedAt: time.Now(),
	}
	return u.Host, nil
}

func (c *CLIConfig) GetCredential(server string) (*Credential, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL '%s': %w", server, err)
	}
	cred, ok := c.Credentials[u.Host]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}
