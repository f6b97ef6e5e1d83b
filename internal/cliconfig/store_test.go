package cliconfig

import (
	"errors"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &CLIConfig{}
	host, err := cfg.SetCredential("https://hub.example.com:8443/api", "tok-123")
	if err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}
	if host != "hub.example.com:8443" {
		t.Errorf("SetCredential() host = %q, want hub.example.com:8443", host)
	}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cred, err := loaded.GetCredential("https://hub.example.com:8443")
	if err != nil {
		t.Fatalf("GetCredential() error = %v", err)
	}
	if cred.Token != "tok-123" {
		t.Errorf("credential token = %q, want tok-123", cred.Token)
	}
	if cred.SavedAt.IsZero() {
		t.Error("credential savedAt was not recorded")
	}

	if _, err := loaded.GetCredential("https://other.example.com"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("GetCredential() for unknown host error = %v, want ErrCredentialNotFound", err)
	}
}

func TestLoadOrNewWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadOrNew()
	if err != nil {
		t.Fatalf("LoadOrNew() error = %v", err)
	}
	if len(cfg.Credentials) != 0 {
		t.Errorf("LoadOrNew() credentials = %v, want empty", cfg.Credentials)
	}
}
