// Package gitwire dispatches remote URLs to the matching transport
// backend. The protocol state machine itself lives in package client;
// backends live under client/.
package gitwire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/client/fileproto"
	"github.com/danmuck/gitwire/client/gitproto"
	"github.com/danmuck/gitwire/client/httpproto"
	"github.com/danmuck/gitwire/client/sshproto"
)

var (
	ErrUnsupportedScheme = errors.New("gitwire: unsupported url scheme")
	ErrSSHConfigRequired = errors.New("gitwire: ssh urls require an ssh client config")
)

// Options carries backend knobs the URL cannot express.
type Options struct {
	// SSHConfig must be set for ssh:// urls; authentication and
	// host-key policy are decided by the caller.
	SSHConfig *ssh.ClientConfig

	// VirtualHost overrides the host= parameter sent to git daemons.
	VirtualHost string

	// HTTPClient substitutes the client used for smart HTTP remotes.
	// Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Connect parses rawURL and opens the matching transport requesting
// version. Supported schemes: git, ssh, http, https, file, and bare
// local paths.
func Connect(ctx context.Context, rawURL string, version client.Protocol, opts Options) (client.Transport, error) {
	if !strings.Contains(rawURL, "://") {
		return fileproto.NewTransport(ctx, rawURL, version), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("gitwire: parse url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "git":
		port, err := parsePort(u)
		if err != nil {
			return nil, err
		}
		return gitproto.Connect(ctx, u.Hostname(), port, u.Path, version, gitproto.Options{
			VirtualHost: opts.VirtualHost,
		})
	case "ssh":
		if opts.SSHConfig == nil {
			return nil, ErrSSHConfigRequired
		}
		cfg := opts.SSHConfig
		if u.User != nil && u.User.Username() != "" && cfg.User == "" {
			clone := *cfg
			clone.User = u.User.Username()
			cfg = &clone
		}
		port, err := parsePort(u)
		if err != nil {
			return nil, err
		}
		return sshproto.Connect(ctx, u.Hostname(), port, cfg, u.Path, version)
	case "http", "https":
		var hopts []httpproto.Option
		if opts.HTTPClient != nil {
			hopts = append(hopts, httpproto.WithClient(opts.HTTPClient))
		}
		return httpproto.NewTransport(ctx, rawURL, version, hopts...), nil
	case "file":
		return fileproto.NewTransport(ctx, u.Path, version), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func parsePort(u *url.URL) (int, error) {
	raw := u.Port()
	if raw == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("gitwire: invalid port %q in %q", raw, u.String())
	}
	return port, nil
}
