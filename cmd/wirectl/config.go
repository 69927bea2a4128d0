package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/danmuck/gitwire/client"
)

// wirectl config.toml key mapping to runtime settings.
type fileConfig struct {
	DefaultVersion        int          `toml:"default_version"`
	TimeoutSeconds        int          `toml:"timeout_seconds"`
	SSHUser               string       `toml:"ssh_user"`
	SSHKeyFile            string       `toml:"ssh_key_file"`
	SSHKnownHostsFile     string       `toml:"ssh_known_hosts_file"`
	SSHKnownHostsInsecure bool         `toml:"ssh_known_hosts_insecure"`
	Remotes               []fileRemote `toml:"remotes"`
}

// fileRemote binds a short name to a remote URL.
type fileRemote struct {
	Name        string `toml:"name"`
	URL         string `toml:"url"`
	VirtualHost string `toml:"virtual_host"`
}

type runtimeConfig struct {
	Version               client.Protocol
	Timeout               time.Duration
	SSHUser               string
	SSHKeyFile            string
	SSHKnownHostsFile     string
	SSHKnownHostsInsecure bool
	Remotes               []fileRemote
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Version: client.V2,
		Timeout: 30 * time.Second,
	}
}

// wirectl loader for TOML config with default overlay. A missing file
// is not an error; defaults apply.
func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load wirectl config: %w", err)
	}

	if meta.IsDefined("default_version") {
		switch raw.DefaultVersion {
		case 1:
			cfg.Version = client.V1
		case 2:
			cfg.Version = client.V2
		default:
			return runtimeConfig{}, fmt.Errorf(
				"load wirectl config: unsupported default_version %d (expected 1 or 2)",
				raw.DefaultVersion,
			)
		}
	}
	if meta.IsDefined("timeout_seconds") {
		if raw.TimeoutSeconds <= 0 {
			return runtimeConfig{}, fmt.Errorf("load wirectl config: timeout_seconds must be positive")
		}
		cfg.Timeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if meta.IsDefined("ssh_user") {
		cfg.SSHUser = strings.TrimSpace(raw.SSHUser)
	}
	if meta.IsDefined("ssh_key_file") {
		cfg.SSHKeyFile = resolvePath(path, raw.SSHKeyFile)
	}
	if meta.IsDefined("ssh_known_hosts_file") {
		cfg.SSHKnownHostsFile = resolvePath(path, raw.SSHKnownHostsFile)
	}
	if meta.IsDefined("ssh_known_hosts_insecure") {
		cfg.SSHKnownHostsInsecure = raw.SSHKnownHostsInsecure
	}
	cfg.Remotes = raw.Remotes

	for _, r := range cfg.Remotes {
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.URL) == "" {
			return runtimeConfig{}, fmt.Errorf("load wirectl config: remotes require non-empty name and url")
		}
	}
	return cfg, nil
}

// resolveRemote maps a configured remote name to its URL; anything not
// named in the config is treated as a URL itself.
func (c runtimeConfig) resolveRemote(arg string) (fileRemote, bool) {
	target := strings.TrimSpace(arg)
	for _, r := range c.Remotes {
		if strings.TrimSpace(r.Name) == target {
			return r, true
		}
	}
	return fileRemote{URL: target}, false
}

// sshClientConfig assembles authentication and host-key policy for
// ssh:// remotes from the config file keys.
func (c runtimeConfig) sshClientConfig() (*ssh.ClientConfig, error) {
	if c.SSHKeyFile == "" {
		return nil, fmt.Errorf("wirectl: ssh_key_file is required for ssh remotes")
	}
	pem, err := os.ReadFile(c.SSHKeyFile)
	if err != nil {
		return nil, fmt.Errorf("wirectl: read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("wirectl: parse ssh key %q: %w", c.SSHKeyFile, err)
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if !c.SSHKnownHostsInsecure {
		if c.SSHKnownHostsFile == "" {
			return nil, fmt.Errorf("wirectl: ssh_known_hosts_file is required unless ssh_known_hosts_insecure=true")
		}
		hostKeys, err = knownhosts.New(c.SSHKnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("wirectl: load known hosts: %w", err)
		}
	}

	user := c.SSHUser
	if user == "" {
		user = "git"
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         c.Timeout,
	}, nil
}

func resolvePath(configPath string, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
