package client

import "io"

// Protocol is the wire protocol version spoken after negotiation.
// Negotiation is downgrade-only: a server may answer with less than
// the requested version, never more.
type Protocol int

const (
	V1 Protocol = 1
	V2 Protocol = 2
)

func (p Protocol) String() string {
	switch p {
	case V1:
		return "version 1"
	case V2:
		return "version 2"
	default:
		return "unknown"
	}
}

// Service identifies the remote operation requested during handshake.
type Service string

const (
	UploadPack  Service = "git-upload-pack"
	ReceivePack Service = "git-receive-pack"
)

func (s Service) String() string { return string(s) }

// WriteMode governs how bytes given to one RequestWriter.Write call
// are framed into packets.
type WriteMode int

const (
	// WriteBinary passes payload bytes through unmodified.
	WriteBinary WriteMode = iota

	// WriteOneLFTerminatedLinePerWriteCall frames each write call as
	// exactly one LF-terminated line in exactly one packet.
	WriteOneLFTerminatedLinePerWriteCall
)

// MessageKind discriminates teardown control messages.
type MessageKind int

const (
	MessageFlush MessageKind = iota
	MessageText
)

// Message is one control packet queued for automatic emission when the
// write phase of a request ends. Emission bypasses normal framing.
type Message struct {
	Kind MessageKind
	Text []byte
}

func FlushMessage() Message { return Message{Kind: MessageFlush} }

func TextMessage(text []byte) Message { return Message{Kind: MessageText, Text: text} }

// ProgressHandler receives one sideband line per call. isError marks
// the error channel (band 3) as opposed to progress (band 2). The line
// carries no trailing LF or CR.
type ProgressHandler func(isError bool, line []byte)

// ExtendedBufRead is the buffered reading capability every response
// reader offers. Fill returns the unread remainder of the current
// packet payload, decoding further packets when empty, and io.EOF once
// the stream terminated on a flush, delimiter or response-end packet.
type ExtendedBufRead interface {
	io.Reader
	Fill() ([]byte, error)
	Consume(n int)
	SetProgressHandler(handler ProgressHandler)
}

// SetServiceResponse is the immutable result of one handshake.
type SetServiceResponse struct {
	// ActualProtocol is what the server agreed to; at most the
	// requested version.
	ActualProtocol Protocol

	Capabilities Capabilities

	// Refs is the V1 ref advertisement stream. Nil under V2. When
	// non-nil it must be read to exhaustion before any further call
	// on the Transport, or the underlying stream desynchronizes.
	Refs io.Reader
}

// Transport negotiates with a remote service and creates framed
// request/response exchanges over one backend byte channel.
//
// Methods must be called in protocol order. Every reader or writer
// handed out must be exhausted or finished before the next call.
type Transport interface {
	// Handshake announces the service, negotiates the protocol
	// version and parses the capability block. The stream is left
	// positioned directly after the capability block; a V1 ref
	// advertisement is returned unread in Refs.
	Handshake(service Service) (*SetServiceResponse, error)

	// Request opens the write phase of one exchange. Valid only
	// after a successful handshake; calling earlier fails with
	// ErrHandshakeIncomplete. onDone is emitted FIFO when the writer
	// transitions to reading or is closed.
	Request(mode WriteMode, onDone []Message) (*RequestWriter, error)
}
