package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SyncIntervalSeconds != 86400 {
		t.Errorf("SyncIntervalSeconds = %d, want 86400", cfg.SyncIntervalSeconds)
	}
	if cfg.MaxConcurrentDownloads != 5 {
		t.Errorf("MaxConcurrentDownloads = %d, want 5", cfg.MaxConcurrentDownloads)
	}
	if cfg.HTTPTimeoutSeconds != 300 {
		t.Errorf("HTTPTimeoutSeconds = %d, want 300", cfg.HTTPTimeoutSeconds)
	}
	if cfg.CentOS != nil || cfg.Docker != nil || cfg.EPEL != nil {
		t.Errorf("expected no repos configured by default, got %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "rpmvault.yaml")

	configContent := `
sync_interval_seconds: 3600
max_concurrent_downloads: 10
http_timeout_seconds: 120
data_dir: /custom/data
history_db_path: /custom/data/history.db
centos:
  - name: centos-9-baseos
    base_url: https://vault.centos.org/9-stream/BaseOS/x86_64/os
    local_path: /custom/data/centos/9-baseos
docker:
  name: docker-ce
  base_url: https://download.docker.com/linux/centos/9/x86_64/stable
  local_path: /custom/data/docker-ce
epel:
  name: epel-9
  base_url: https://download.fedoraproject.org/pub/epel/9/Everything/x86_64
  local_path: /custom/data/epel-9
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SyncIntervalSeconds != 3600 {
		t.Errorf("SyncIntervalSeconds = %d, want 3600", cfg.SyncIntervalSeconds)
	}
	if cfg.MaxConcurrentDownloads != 10 {
		t.Errorf("MaxConcurrentDownloads = %d, want 10", cfg.MaxConcurrentDownloads)
	}
	if len(cfg.CentOS) != 1 || cfg.CentOS[0].Name != "centos-9-baseos" {
		t.Errorf("CentOS = %+v", cfg.CentOS)
	}
	if cfg.Docker == nil || cfg.Docker.Name != "docker-ce" {
		t.Errorf("Docker = %+v", cfg.Docker)
	}
	if cfg.EPEL == nil || cfg.EPEL.Name != "epel-9" {
		t.Errorf("EPEL = %+v", cfg.EPEL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")
	if err := os.WriteFile(configFile, []byte("centos: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(configFile); err == nil {
		t.Error("Load succeeded, want error for invalid YAML")
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/to/config.yaml"); err == nil {
		t.Error("Load succeeded, want error for missing file")
	}
}

func TestFindConfigFileNotFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})

	if _, err := FindConfigFile(); err == nil {
		t.Error("FindConfigFile succeeded, want error when no config exists")
	}
}

func TestFindConfigFileFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})

	if err := os.WriteFile(filepath.Join(tempDir, "rpmvault.yaml"), []byte("sync_interval_seconds: 3600"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile returned error: %v", err)
	}
	if found != "rpmvault.yaml" {
		t.Errorf("FindConfigFile = %q, want rpmvault.yaml", found)
	}
}

func TestDescriptorsSkipsIncompleteEntries(t *testing.T) {
	cfg := &Config{
		CentOS: []RepoConfig{
			{Name: "good", BaseURL: "https://example.com/good", LocalPath: "/data/good"},
			{Name: "missing-local-path", BaseURL: "https://example.com/bad"},
		},
		Docker: &RepoConfig{Name: "docker-ce"},
	}

	valid, skipped := cfg.Descriptors()
	if len(valid) != 1 || valid[0].Name != "good" {
		t.Errorf("valid descriptors = %+v, want just 'good'", valid)
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %+v, want 2 entries", skipped)
	}
}

func TestDescriptorsReturnsAllConfiguredRepos(t *testing.T) {
	cfg := &Config{
		CentOS: []RepoConfig{
			{Name: "centos-baseos", BaseURL: "https://vault.centos.org/baseos", LocalPath: "/data/baseos"},
		},
		Docker: &RepoConfig{Name: "docker-ce", BaseURL: "https://download.docker.com/ce", LocalPath: "/data/docker"},
		EPEL:   &RepoConfig{Name: "epel-9", BaseURL: "https://dl.fedoraproject.org/epel", LocalPath: "/data/epel"},
	}

	valid, skipped := cfg.Descriptors()
	if len(skipped) != 0 {
		t.Errorf("skipped = %+v, want none", skipped)
	}
	if len(valid) != 3 {
		t.Errorf("valid = %+v, want 3 descriptors", valid)
	}
}

func TestDescriptorsJoinsRelativeLocalPathUnderDataDir(t *testing.T) {
	cfg := &Config{
		DataDir: "/var/lib/rpmvault",
		CentOS: []RepoConfig{
			{
				Name:      "centos-7-vault",
				BaseURL:   "https://vault.centos.org/7.9.2009/os/x86_64",
				LocalPath: "centos/7.9.2009/os/x86_64",
			},
		},
		Docker: &RepoConfig{
			Name:      "docker-ce-stable",
			BaseURL:   "https://download.docker.com/linux/centos/7/x86_64/stable",
			LocalPath: "docker-ce/centos/7/x86_64/stable",
		},
	}

	valid, skipped := cfg.Descriptors()
	if len(skipped) != 0 {
		t.Fatalf("skipped = %+v, want none", skipped)
	}
	if len(valid) != 2 {
		t.Fatalf("valid = %+v, want 2 descriptors", valid)
	}

	want := map[string]string{
		"centos-7-vault":   "/var/lib/rpmvault/centos/7.9.2009/os/x86_64",
		"docker-ce-stable": "/var/lib/rpmvault/docker-ce/centos/7/x86_64/stable",
	}
	for _, d := range valid {
		if d.LocalRoot != want[d.Name] {
			t.Errorf("%s: LocalRoot = %q, want %q", d.Name, d.LocalRoot, want[d.Name])
		}
	}
}
