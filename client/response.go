package client

import (
	"fmt"
	"io"

	"github.com/danmuck/gitwire/pktline"
)

// PacketReader decodes a framed response stream into payload bytes and
// implements ExtendedBufRead. While a progress handler is installed,
// data packets are treated as sideband-multiplexed: band 1 bytes
// become payload, bands 2 and 3 are routed to the handler and never
// surface as payload. Without a handler, packet payloads pass through
// untouched.
//
// The stream ends at the first flush, delimiter or response-end
// packet; Stopped reports which one, and Reset re-arms the reader for
// the next response section.
type PacketReader struct {
	rd      *pktline.Reader
	buf     []byte
	eof     bool
	stopped pktline.PacketKind
	handler ProgressHandler
}

func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{rd: pktline.NewReader(r)}
}

func (r *PacketReader) Fill() ([]byte, error) {
	for len(r.buf) == 0 {
		if r.eof {
			return nil, io.EOF
		}
		p, err := r.rd.ReadPacket()
		if err != nil {
			if err == io.EOF {
				r.eof = true
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: %w", ErrLineDecode, err)
		}
		switch p.Kind {
		case pktline.PacketData:
			if err := r.acceptData(p.Payload); err != nil {
				return nil, err
			}
		default:
			r.eof = true
			r.stopped = p.Kind
			return nil, io.EOF
		}
	}
	return r.buf, nil
}

func (r *PacketReader) acceptData(payload []byte) error {
	if r.handler == nil || len(payload) == 0 {
		r.buf = payload
		return nil
	}
	switch payload[0] {
	case pktline.BandData:
		r.buf = payload[1:]
	case pktline.BandProgress:
		r.handler(false, chompLine(payload[1:]))
	case pktline.BandError:
		r.handler(true, chompLine(payload[1:]))
	default:
		return fmt.Errorf("%w: invalid sideband channel %d", ErrLineDecode, payload[0])
	}
	return nil
}

func (r *PacketReader) Consume(n int) {
	r.buf = r.buf[n:]
}

func (r *PacketReader) Read(p []byte) (int, error) {
	buf, err := r.Fill()
	if err != nil {
		return 0, err
	}
	n := copy(p, buf)
	r.Consume(n)
	return n, nil
}

// SetProgressHandler installs, replaces or clears (nil) the sideband
// callback. Takes effect on the next Fill; already-buffered payload
// bytes are kept.
func (r *PacketReader) SetProgressHandler(handler ProgressHandler) {
	r.handler = handler
}

// Stopped reports the packet kind that terminated the stream. Only
// meaningful after a Fill or Read returned io.EOF.
func (r *PacketReader) Stopped() pktline.PacketKind {
	return r.stopped
}

// Reset re-arms the reader after a section terminator so the next
// protocol V2 response section can be read from the same stream.
func (r *PacketReader) Reset() {
	r.eof = false
	r.stopped = pktline.PacketData
}

// ResponseReader holds the read phase of one exchange, delegating to
// the backend's buffered reader.
type ResponseReader struct {
	inner ExtendedBufRead
}

func (r *ResponseReader) Read(p []byte) (int, error) { return r.inner.Read(p) }

func (r *ResponseReader) Fill() ([]byte, error) { return r.inner.Fill() }

func (r *ResponseReader) Consume(n int) { r.inner.Consume(n) }

func (r *ResponseReader) SetProgressHandler(handler ProgressHandler) {
	r.inner.SetProgressHandler(handler)
}
