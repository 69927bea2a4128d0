// Package pktline owns the packet-line wire framing used by the Git
// smart protocol.
//
// Ownership boundary:
// - length-prefix encode/decode primitives
// - flush/delimiter/response-end sentinel recognition
// - framed writer modes (binary, one line per write)
package pktline

import "errors"

const (
	// PrefixLen is the size of the ASCII hex length prefix.
	PrefixLen = 4

	// MaxPayloadLen is the largest payload a single packet may carry.
	MaxPayloadLen = 65520 - PrefixLen
)

// Sentinel packets carrying no payload.
var (
	flushBytes       = []byte("0000")
	delimiterBytes   = []byte("0001")
	responseEndBytes = []byte("0002")
)

var (
	ErrInvalidPrefix   = errors.New("pktline: length prefix is not hexadecimal")
	ErrPrefixTooSmall  = errors.New("pktline: length prefix smaller than itself")
	ErrPayloadTooLarge = errors.New("pktline: payload too large")
	ErrTruncated       = errors.New("pktline: truncated packet")
	ErrEmptyLine       = errors.New("pktline: empty text line")
	ErrMultipleLines   = errors.New("pktline: text write must be a single line")
)

// PacketKind discriminates the framing units of the wire protocol.
type PacketKind int

const (
	PacketData PacketKind = iota
	PacketFlush
	PacketDelimiter
	PacketResponseEnd
)

func (k PacketKind) String() string {
	switch k {
	case PacketData:
		return "data"
	case PacketFlush:
		return "flush"
	case PacketDelimiter:
		return "delimiter"
	case PacketResponseEnd:
		return "response-end"
	default:
		return "unknown"
	}
}

// Packet is one decoded framing unit. Payload is nil for sentinel kinds.
type Packet struct {
	Kind    PacketKind
	Payload []byte
}

// Sideband channel identifiers multiplexed into data packets.
const (
	BandData     byte = 1
	BandProgress byte = 2
	BandError    byte = 3
)
