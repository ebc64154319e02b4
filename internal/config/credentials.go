package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const defaultCredentialsHost = "app.terraform.io"

type credentialsFile struct {
	Credentials map[string]struct {
		Token string `json:"token"`
	} `json:"credentials"`
}

// DefaultCredentialsPath returns the Terraform CLI credentials file location
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".terraform.d", "credentials.tfrc.json"), nil
}

// TokenFromCredentialsFile reads the token for host, falling back to the
// app.terraform.io entry
func TokenFromCredentialsFile(path, host string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(raw, &creds); err != nil {
		return "", fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	if entry, ok := creds.Credentials[host]; ok && entry.Token != "" {
		return entry.Token, nil
	}
	if entry, ok := creds.Credentials[defaultCredentialsHost]; ok && entry.Token != "" {
		return entry.Token, nil
	}
	return "", &ConfigError{Field: "TF_TOKEN", Message: fmt.Sprintf("no token for %s in %s", host, path)}
}
