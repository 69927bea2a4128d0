// Package fileproto implements the local-repository transport backend
// by spawning the service binary (git-upload-pack, git-receive-pack)
// and speaking the stream protocol over its pipes.
package fileproto

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/client/gitproto"
)

// Transport spawns the service process lazily on handshake, since the
// binary to run is the requested service itself.
type Transport struct {
	ctx     context.Context
	path    string
	version client.Protocol

	cmd   *exec.Cmd
	stdin io.WriteCloser
	conn  *gitproto.Connection
}

// NewTransport prepares a transport for the repository at path. ctx
// bounds the lifetime of the spawned process.
func NewTransport(ctx context.Context, path string, version client.Protocol) *Transport {
	return &Transport{ctx: ctx, path: path, version: version}
}

func (t *Transport) Handshake(service client.Service) (*client.SetServiceResponse, error) {
	if t.conn == nil {
		if err := t.spawn(service); err != nil {
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

func (t *Transport) spawn(service client.Service) error {
	cmd := exec.CommandContext(t.ctx, service.String(), t.path)
	cmd.Env = append(os.Environ(), protocolEnv(t.version)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("fileproto: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("fileproto: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("fileproto: start %s: %w", service, err)
	}
	t.cmd = cmd
	t.stdin = stdin
	t.conn = gitproto.NewConnection(stdout, stdin, nil, t.version, t.path, gitproto.ModeProcess, gitproto.Options{})
	return nil
}

// Close ends the exchange by closing the process stdin and waiting for
// it to exit.
func (t *Transport) Close() error {
	if t.cmd == nil {
		return nil
	}
	_ = t.stdin.Close()
	err := t.cmd.Wait()
	t.cmd = nil
	t.conn = nil
	return err
}

func protocolEnv(version client.Protocol) []string {
	if version > client.V1 {
		return []string{fmt.Sprintf("GIT_PROTOCOL=version=%d", version)}
	}
	return nil
}
