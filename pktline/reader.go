package pktline

import (
	"fmt"
	"io"
)

// Reader decodes packet lines from a byte stream.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadPacket decodes the next framing unit. Sentinel packets carry no
// payload. io.EOF is returned unwrapped when the stream ends on a
// packet boundary.
func (rd *Reader) ReadPacket() (Packet, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(rd.r, prefix[:]); err != nil {
		if err == io.EOF {
			return Packet{}, io.EOF
		}
		return Packet{}, fmt.Errorf("%w: short length prefix", ErrTruncated)
	}

	length, err := decodePrefix(prefix[:])
	if err != nil {
		return Packet{}, err
	}

	switch length {
	case 0:
		return Packet{Kind: PacketFlush}, nil
	case 1:
		return Packet{Kind: PacketDelimiter}, nil
	case 2:
		return Packet{Kind: PacketResponseEnd}, nil
	}
	if length < PrefixLen {
		return Packet{}, fmt.Errorf("%w: %d", ErrPrefixTooSmall, length)
	}

	payloadLen := length - PrefixLen
	if payloadLen > MaxPayloadLen {
		return Packet{}, fmt.Errorf("%w: %d", ErrPayloadTooLarge, payloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(rd.r, payload); err != nil {
		return Packet{}, fmt.Errorf("%w: payload short by stream end", ErrTruncated)
	}
	return Packet{Kind: PacketData, Payload: payload}, nil
}

func decodePrefix(b []byte) (int, error) {
	var length int
	for _, c := range b {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, string(b))
		}
		length = length<<4 | v
	}
	return length, nil
}
