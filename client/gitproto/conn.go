// Package gitproto implements the stream-oriented transport backend:
// the native git:// daemon protocol over TCP, and the shared state
// machine reused by every backend that talks through a duplex byte
// channel (subprocess pipes, ssh sessions).
package gitproto

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/pktline"
)

// ConnectMode controls whether the handshake announces the service on
// the wire first.
type ConnectMode int

const (
	// ModeDaemon writes the git-daemon service request packet before
	// reading the advertisement.
	ModeDaemon ConnectMode = iota

	// ModeProcess expects the server to advertise unprompted, as
	// spawned upload-pack/receive-pack processes do.
	ModeProcess
)

// Options carries optional daemon request parameters.
type Options struct {
	// VirtualHost is sent as the host= parameter for name-based
	// virtual hosting on the daemon. Empty omits it.
	VirtualHost string

	// ExtraParameters are appended after the NUL-NUL separator, each
	// NUL-terminated, in order. The version parameter is added
	// automatically.
	ExtraParameters []string
}

// Connection is a client.Transport over one duplex byte channel.
type Connection struct {
	r       io.Reader
	w       io.Writer
	closer  io.Closer
	rd      *pktline.Reader
	path    string
	version client.Protocol
	mode    ConnectMode
	opts    Options

	handshaken bool
}

// NewConnection wraps an established byte channel. version is the
// protocol to request; the server may still downgrade. closer may be
// nil when the channel's lifetime is managed elsewhere.
func NewConnection(r io.Reader, w io.Writer, closer io.Closer, version client.Protocol, path string, mode ConnectMode, opts Options) *Connection {
	return &Connection{
		r:       r,
		w:       w,
		closer:  closer,
		rd:      pktline.NewReader(r),
		path:    path,
		version: version,
		mode:    mode,
		opts:    opts,
	}
}

func (c *Connection) Handshake(service client.Service) (*client.SetServiceResponse, error) {
	if c.mode == ModeDaemon {
		req := daemonRequest(service, c.path, c.opts.VirtualHost, c.version, c.opts.ExtraParameters)
		if err := pktline.WriteDataPacket(c.w, req); err != nil {
			return nil, fmt.Errorf("gitproto: write service request: %w", err)
		}
	}
	actual, caps, refs, err := client.ReadAdvertisement(c.rd)
	if err != nil {
		return nil, err
	}
	c.handshaken = true
	return &client.SetServiceResponse{
		ActualProtocol: actual,
		Capabilities:   caps,
		Refs:           refs,
	}, nil
}

func (c *Connection) Request(mode client.WriteMode, onDone []client.Message) (*client.RequestWriter, error) {
	if !c.handshaken {
		return nil, client.ErrHandshakeIncomplete
	}
	return client.NewRequestWriter(c.w, client.NewPacketReader(c.r), mode, onDone), nil
}

func (c *Connection) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// DefaultPort is the well-known git daemon port.
const DefaultPort = 9418

// Connect dials a git:// daemon over TCP. An empty port uses
// DefaultPort. The connection owns the socket; Close releases it.
func Connect(ctx context.Context, host string, port int, path string, version client.Protocol, opts Options) (*Connection, error) {
	if port == 0 {
		port = DefaultPort
	}
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("gitproto: dial %s:%d: %w", host, port, err)
	}
	if opts.VirtualHost == "" {
		opts.VirtualHost = host
	}
	return NewConnection(conn, conn, conn, version, path, ModeDaemon, opts), nil
}
