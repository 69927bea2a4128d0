// Package sshproto implements the ssh:// transport backend: the
// service binary runs on the remote host inside one ssh session and
// the stream protocol is spoken over the session pipes.
//
// Authentication and host-key policy are the caller's business; they
// arrive fully configured inside the ssh.ClientConfig.
package sshproto

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/client/gitproto"
)

// DefaultPort is the well-known ssh port.
const DefaultPort = 22

// Transport runs the requested service remotely. The session is
// opened lazily on handshake because the remote command embeds the
// service name.
type Transport struct {
	cli     *ssh.Client
	path    string
	version client.Protocol

	sess *ssh.Session
	conn *gitproto.Connection
}

// Connect dials host:port and authenticates with cfg. The returned
// transport owns the ssh client connection.
func Connect(ctx context.Context, host string, port int, cfg *ssh.ClientConfig, path string, version client.Protocol) (*Transport, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := &net.Dialer{Timeout: cfg.Timeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sshproto: dial %s: %w", addr, err)
	}
	cc, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("sshproto: ssh handshake with %s: %w", addr, err)
	}
	return &Transport{
		cli:     ssh.NewClient(cc, chans, reqs),
		path:    path,
		version: version,
	}, nil
}

func (t *Transport) Handshake(service client.Service) (*client.SetServiceResponse, error) {
	if t.conn == nil {
		if err := t.start(service); err != nil {
			return nil, err
		}
	}
	return t.conn.Handshake(service)
}

func (t *Transport) Request(mode client.WriteMode, onDone []client.Message) (*client.RequestWriter, error) {
	if t.conn == nil {
		return nil, client.ErrHandshakeIncomplete
	}
	return t.conn.Request(mode, onDone)
}

func (t *Transport) start(service client.Service) error {
	sess, err := t.cli.NewSession()
	if err != nil {
		return fmt.Errorf("sshproto: open session: %w", err)
	}
	if t.version > client.V1 {
		// Best effort: servers only honor this when AcceptEnv lists
		// GIT_PROTOCOL, and reject it otherwise.
		_ = sess.Setenv("GIT_PROTOCOL", fmt.Sprintf("version=%d", t.version))
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return fmt.Errorf("sshproto: stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return fmt.Errorf("sshproto: stdout pipe: %w", err)
	}
	if err := sess.Start(remoteCommand(service, t.path)); err != nil {
		_ = sess.Close()
		return fmt.Errorf("sshproto: start %s: %w", service, err)
	}
	t.sess = sess
	t.conn = gitproto.NewConnection(stdout, stdin, nil, t.version, t.path, gitproto.ModeProcess, gitproto.Options{})
	return nil
}

// Close tears down the session (if any) and the ssh connection.
func (t *Transport) Close() error {
	if t.sess != nil {
		_ = t.sess.Close()
		t.sess = nil
		t.conn = nil
	}
	return t.cli.Close()
}

// remoteCommand quotes the repository path the way git itself does, so
// paths with spaces survive the remote shell.
func remoteCommand(service client.Service, path string) string {
	quoted := "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
	return service.String() + " " + quoted
}
