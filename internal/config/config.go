// Package config loads the YAML configuration describing which
// repositories to mirror and the cycle's resource limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rpmvault/rpmvault/internal/reposync"
	"github.com/rpmvault/rpmvault/internal/safety"
)

// Config is the top-level configuration.
type Config struct {
	SyncIntervalSeconds    int    `yaml:"sync_interval_seconds"`
	MaxConcurrentDownloads int    `yaml:"max_concurrent_downloads"`
	HTTPTimeoutSeconds     int    `yaml:"http_timeout_seconds"`
	DataDir                string `yaml:"data_dir"`
	HistoryDBPath          string `yaml:"history_db_path"`

	CentOS []RepoConfig `yaml:"centos"`
	Docker *RepoConfig  `yaml:"docker"`
	EPEL   *RepoConfig  `yaml:"epel"`
}

// RepoConfig is one repository descriptor as written in YAML.
type RepoConfig struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	LocalPath string `yaml:"local_path"`
}

// DefaultConfig returns a config with the defaults named in the external
// interface contract: a daily cycle, 5 concurrent downloads, a 300s HTTP
// timeout.
func DefaultConfig() *Config {
	return &Config{
		SyncIntervalSeconds:    86400,
		MaxConcurrentDownloads: 5,
		HTTPTimeoutSeconds:     300,
		DataDir:                "/var/lib/rpmvault",
		HistoryDBPath:          "/var/lib/rpmvault/history.db",
	}
}

// Load reads and parses a config file, applying defaults for anything the
// file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// FindConfigFile searches standard locations for a config file.
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"rpmvault.yaml",
		"/etc/rpmvault/rpmvault.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "rpmvault", "rpmvault.yaml"))
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Descriptors flattens the CentOS/Docker/EPEL sections into the sync
// engine's descriptor type, skipping (and naming) any entry missing a
// required field — a config error aborts only the affected repo, never
// the whole process.
func (c *Config) Descriptors() (valid []reposync.Descriptor, skipped []string) {
	add := func(rc RepoConfig) {
		if rc.BaseURL == "" || rc.LocalPath == "" {
			skipped = append(skipped, fmt.Sprintf("%s: missing base_url or local_path", rc.Name))
			return
		}
		u, err := safety.ValidateHTTPURL(rc.BaseURL)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: invalid base_url: %v", rc.Name, err))
			return
		}
		if safety.IsLoopbackHost(u) {
			skipped = append(skipped, fmt.Sprintf("%s: base_url must not target a loopback host", rc.Name))
			return
		}
		valid = append(valid, reposync.Descriptor{
			Name:      rc.Name,
			BaseURL:   rc.BaseURL,
			LocalRoot: filepath.Join(c.DataDir, rc.LocalPath),
		})
	}

	for _, rc := range c.CentOS {
		add(rc)
	}
	if c.Docker != nil {
		add(*c.Docker)
	}
	if c.EPEL != nil {
		add(*c.EPEL)
	}
	return valid, skipped
}
