package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProxyConfig is the subset of the proxy binary's configuration file this
// installer renders. The full schema is owned by the proxy binary; the
// installer only guarantees the file exists with the provisioned paths
// filled in before the service starts.
type ProxyConfig struct {
	Listen   string `json:"listen"`
	Protocol string `json:"protocol"`
	Cert     string `json:"cert"`
	Key      string `json:"key"`
	Obfs     string `json:"obfs,omitempty"`

	Auth ProxyAuth `json:"auth"`
}

// ProxyAuth points the proxy at the provisioned credential store.
type ProxyAuth struct {
	Mode   string         `json:"mode"`
	Config map[string]any `json:"config"`
}

// WriteConfig renders cfg as JSON at path via a temp file and rename.
func WriteConfig(path string, cfg ProxyConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal proxy config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write proxy config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish proxy config: %w", err)
	}
	return nil
}
