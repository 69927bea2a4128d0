package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/gitwire/client"
)

func TestLoadRuntimeConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "wirectl.toml")
	content := `
default_version = 1
timeout_seconds = 5
ssh_user = "deploy"
ssh_key_file = "id_ed25519"
ssh_known_hosts_insecure = true
[[remotes]]
name = "origin"
url = "https://example.com/repo.git"
[[remotes]]
name = "daemon"
url = "git://example.com/repo.git"
virtual_host = "git.internal"
	`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Version != client.V1 {
		t.Fatalf("unexpected version: %v", cfg.Version)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
	if cfg.SSHUser != "deploy" {
		t.Fatalf("unexpected ssh user: %q", cfg.SSHUser)
	}
	if want := filepath.Join(dir, "id_ed25519"); cfg.SSHKeyFile != want {
		t.Fatalf("key path not resolved against config dir: %q", cfg.SSHKeyFile)
	}
	if !cfg.SSHKnownHostsInsecure {
		t.Fatalf("expected insecure host key mode")
	}

	remote, named := cfg.resolveRemote("daemon")
	if !named || remote.URL != "git://example.com/repo.git" || remote.VirtualHost != "git.internal" {
		t.Fatalf("remote lookup mismatch: %+v named=%v", remote, named)
	}
	if remote, named := cfg.resolveRemote("https://other.example/x.git"); named || remote.URL != "https://other.example/x.git" {
		t.Fatalf("unnamed remote mishandled: %+v named=%v", remote, named)
	}
}

func TestLoadRuntimeConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadRuntimeConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Version != client.V2 {
		t.Fatalf("unexpected default version: %v", cfg.Version)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected default timeout: %v", cfg.Timeout)
	}
}

func TestLoadRuntimeConfigRejectsBadVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wirectl.toml")
	if err := os.WriteFile(path, []byte("default_version = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRuntimeConfig(path); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestLoadRuntimeConfigRejectsUnnamedRemote(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wirectl.toml")
	if err := os.WriteFile(path, []byte("[[remotes]]\nurl = \"git://x/y.git\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRuntimeConfig(path); err == nil {
		t.Fatalf("expected error for remote without name")
	}
}

func TestSSHClientConfigRequiresKey(t *testing.T) {
	cfg := defaultRuntimeConfig()
	if _, err := cfg.sshClientConfig(); err == nil {
		t.Fatalf("expected error without ssh_key_file")
	}
}

func TestParseService(t *testing.T) {
	if svc, err := parseService("receive-pack"); err != nil || svc != client.ReceivePack {
		t.Fatalf("receive-pack: svc=%v err=%v", svc, err)
	}
	if svc, err := parseService("git-upload-pack"); err != nil || svc != client.UploadPack {
		t.Fatalf("git-upload-pack: svc=%v err=%v", svc, err)
	}
	if _, err := parseService("upload-archive"); err == nil {
		t.Fatalf("expected error for unsupported service")
	}
}
