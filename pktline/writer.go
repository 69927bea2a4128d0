package pktline

import (
	"bytes"
	"fmt"
	"io"
)

// Mode selects how Writer frames the bytes of one Write call.
type Mode int

const (
	// ModeBinary passes bytes through unmodified, splitting writes
	// larger than MaxPayloadLen into multiple packets.
	ModeBinary Mode = iota

	// ModeText frames each Write call as exactly one LF-terminated
	// line in exactly one packet. A missing trailing LF is appended;
	// an interior LF is rejected.
	ModeText
)

// Writer frames application bytes into data packets.
type Writer struct {
	w    io.Writer
	mode Mode
}

func NewWriter(w io.Writer, mode Mode) *Writer {
	return &Writer{w: w, mode: mode}
}

func (fw *Writer) Write(p []byte) (int, error) {
	switch fw.mode {
	case ModeText:
		if err := writeTextPacket(fw.w, p); err != nil {
			return 0, err
		}
		return len(p), nil
	default:
		written := 0
		for len(p) > 0 {
			chunk := p
			if len(chunk) > MaxPayloadLen {
				chunk = chunk[:MaxPayloadLen]
			}
			if err := writeDataPacket(fw.w, chunk); err != nil {
				return written, err
			}
			written += len(chunk)
			p = p[len(chunk):]
		}
		return written, nil
	}
}

// WriteFlush emits a raw flush packet, bypassing framing modes.
func WriteFlush(w io.Writer) error {
	_, err := w.Write(flushBytes)
	return err
}

// WriteDelimiter emits a raw delimiter packet.
func WriteDelimiter(w io.Writer) error {
	_, err := w.Write(delimiterBytes)
	return err
}

// WriteResponseEnd emits a raw response-end packet.
func WriteResponseEnd(w io.Writer) error {
	_, err := w.Write(responseEndBytes)
	return err
}

// WriteDataPacket emits payload as a single packet without any line
// handling.
func WriteDataPacket(w io.Writer, payload []byte) error {
	return writeDataPacket(w, payload)
}

// WriteTextPacket emits one LF-terminated line as a single packet,
// appending the LF when absent.
func WriteTextPacket(w io.Writer, line []byte) error {
	return writeTextPacket(w, line)
}

func writeTextPacket(w io.Writer, line []byte) error {
	if len(line) == 0 {
		return ErrEmptyLine
	}
	body := line
	if body[len(body)-1] == '\n' {
		body = body[:len(body)-1]
	}
	if bytes.IndexByte(body, '\n') != -1 {
		return ErrMultipleLines
	}
	if len(body)+1 > MaxPayloadLen {
		return fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(body)+1)
	}
	buf := make([]byte, 0, PrefixLen+len(body)+1)
	buf = appendPrefix(buf, len(body)+1)
	buf = append(buf, body...)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

func writeDataPacket(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, 0, PrefixLen+len(payload))
	buf = appendPrefix(buf, len(payload))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

const hexDigits = "0123456789abcdef"

func appendPrefix(buf []byte, payloadLen int) []byte {
	total := payloadLen + PrefixLen
	return append(buf,
		hexDigits[total>>12&0xf],
		hexDigits[total>>8&0xf],
		hexDigits[total>>4&0xf],
		hexDigits[total&0xf],
	)
}
