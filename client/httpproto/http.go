// Package httpproto implements the smart HTTP transport backend. The
// handshake is one GET against info/refs; each request buffers its
// framed body and POSTs it to the service endpoint when the response
// is first read.
package httpproto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/pktline"
)

var ErrUnexpectedStatus = errors.New("httpproto: unexpected http status")

// Transport is a client.Transport over one smart HTTP remote.
type Transport struct {
	ctx     context.Context
	url     string
	version client.Protocol
	hc      *http.Client

	service       client.Service
	handshaken    bool
	handshakeBody io.ReadCloser
}

// Option configures a Transport.
type Option func(*Transport)

// WithClient substitutes the http.Client used for all round trips.
func WithClient(hc *http.Client) Option {
	return func(t *Transport) { t.hc = hc }
}

// NewTransport targets the repository at url (no trailing slash
// required). ctx bounds every round trip.
func NewTransport(ctx context.Context, url string, version client.Protocol, opts ...Option) *Transport {
	t := &Transport{
		ctx:     ctx,
		url:     strings.TrimSuffix(url, "/"),
		version: version,
		hc:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Handshake(service client.Service) (*client.SetServiceResponse, error) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.url+"/info/refs?service="+service.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("httpproto: build handshake request: %w", err)
	}
	if t.version > client.V1 {
		req.Header.Set("Git-Protocol", fmt.Sprintf("version=%d", t.version))
	}
	resp, err := t.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpproto: handshake round trip: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	rd := pktline.NewReader(resp.Body)
	if err := readServiceAnnouncement(rd, service); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	actual, caps, refs, err := client.ReadAdvertisement(rd)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	t.service = service
	t.handshaken = true
	t.handshakeBody = resp.Body
	return &client.SetServiceResponse{
		ActualProtocol: actual,
		Capabilities:   caps,
		Refs:           refs,
	}, nil
}

// readServiceAnnouncement consumes the "# service=<name>" line and its
// closing flush that smart HTTP servers prepend to the advertisement.
func readServiceAnnouncement(rd *pktline.Reader, service client.Service) error {
	p, err := rd.ReadPacket()
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrLineDecode, err)
	}
	if p.Kind != pktline.PacketData {
		return fmt.Errorf("%w: service announcement", client.ErrExpectedLine)
	}
	announced := strings.TrimSpace(string(p.Payload))
	if announced != "# service="+service.String() {
		return fmt.Errorf("%w: unexpected service announcement %q", client.ErrCapabilities, announced)
	}
	p, err = rd.ReadPacket()
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrLineDecode, err)
	}
	if p.Kind != pktline.PacketFlush {
		return fmt.Errorf("%w: announcement flush", client.ErrExpectedLine)
	}
	return nil
}

func (t *Transport) Request(mode client.WriteMode, onDone []client.Message) (*client.RequestWriter, error) {
	if !t.handshaken {
		return nil, client.ErrHandshakeIncomplete
	}
	if t.handshakeBody != nil {
		_ = t.handshakeBody.Close()
		t.handshakeBody = nil
	}
	body := &bytes.Buffer{}
	return client.NewRequestWriter(body, &postResponse{t: t, body: body}, mode, onDone), nil
}

// Close releases a still-open handshake response body.
func (t *Transport) Close() error {
	if t.handshakeBody != nil {
		err := t.handshakeBody.Close()
		t.handshakeBody = nil
		return err
	}
	return nil
}

// postResponse is the reader-in-waiting for one buffered request. The
// POST happens on first read, after the write phase (teardown packets
// included) finished filling the body.
type postResponse struct {
	t    *Transport
	body *bytes.Buffer

	inner client.ExtendedBufRead
	resp  io.Closer

	handler    client.ProgressHandler
	handlerSet bool
}

func (p *postResponse) start() error {
	if p.inner != nil {
		return nil
	}
	svc := p.t.service.String()
	req, err := http.NewRequestWithContext(p.t.ctx, http.MethodPost, p.t.url+"/"+svc, bytes.NewReader(p.body.Bytes()))
	if err != nil {
		return fmt.Errorf("httpproto: build %s request: %w", svc, err)
	}
	req.Header.Set("Content-Type", "application/x-"+svc+"-request")
	req.Header.Set("Accept", "application/x-"+svc+"-result")
	if p.t.version > client.V1 {
		req.Header.Set("Git-Protocol", fmt.Sprintf("version=%d", p.t.version))
	}
	resp, err := p.t.hc.Do(req)
	if err != nil {
		return fmt.Errorf("httpproto: %s round trip: %w", svc, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	inner := client.NewPacketReader(resp.Body)
	if p.handlerSet {
		inner.SetProgressHandler(p.handler)
	}
	p.inner = inner
	p.resp = resp.Body
	return nil
}

func (p *postResponse) Fill() ([]byte, error) {
	if err := p.start(); err != nil {
		return nil, err
	}
	return p.inner.Fill()
}

func (p *postResponse) Consume(n int) {
	if p.inner != nil {
		p.inner.Consume(n)
	}
}

func (p *postResponse) Read(b []byte) (int, error) {
	if err := p.start(); err != nil {
		return 0, err
	}
	return p.inner.Read(b)
}

func (p *postResponse) SetProgressHandler(handler client.ProgressHandler) {
	p.handler = handler
	p.handlerSet = true
	if p.inner != nil {
		p.inner.SetProgressHandler(handler)
	}
}
