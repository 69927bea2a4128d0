package client

import (
	"bytes"
	"fmt"
	"io"

	"github.com/danmuck/gitwire/pktline"
)

// ReadAdvertisement consumes the capability block of a service
// advertisement from rd and returns the protocol the server actually
// speaks, the parsed capabilities and, under V1, the unread ref
// advertisement stream. The stream is left positioned directly after
// the capability block.
//
// Shared by every backend that receives the advertisement as a packet
// stream (git daemon, subprocess pipes, ssh sessions, smart HTTP
// bodies).
func ReadAdvertisement(rd *pktline.Reader) (Protocol, Capabilities, io.Reader, error) {
	line, err := readDataLine(rd, "version or first-ref")
	if err != nil {
		return 0, Capabilities{}, nil, err
	}

	switch string(line) {
	case "version 2":
		caps, err := readCapabilityLines(rd)
		if err != nil {
			return 0, Capabilities{}, nil, err
		}
		return V2, caps, nil, nil
	case "version 1":
		// Explicit announcement; the first-ref line follows.
		line, err = readDataLine(rd, "first-ref")
		if err != nil {
			return 0, Capabilities{}, nil, err
		}
	}

	caps, refText, err := CapabilitiesFromLine(line)
	if err != nil {
		return 0, Capabilities{}, nil, err
	}
	return V1, caps, newRefsReader(refText, rd), nil
}

func readDataLine(rd *pktline.Reader, expected string) ([]byte, error) {
	p, err := rd.ReadPacket()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s", ErrExpectedLine, expected)
		}
		return nil, fmt.Errorf("%w: %w", ErrLineDecode, err)
	}
	switch p.Kind {
	case pktline.PacketData:
		return chompLine(p.Payload), nil
	case pktline.PacketDelimiter:
		return nil, ErrExpectedDataLine
	default:
		return nil, fmt.Errorf("%w: %s", ErrExpectedLine, expected)
	}
}

func readCapabilityLines(rd *pktline.Reader) (Capabilities, error) {
	var lines [][]byte
	for {
		p, err := rd.ReadPacket()
		if err != nil {
			if err == io.EOF {
				return Capabilities{}, fmt.Errorf("%w: capability listing flush", ErrExpectedLine)
			}
			return Capabilities{}, fmt.Errorf("%w: %w", ErrLineDecode, err)
		}
		switch p.Kind {
		case pktline.PacketFlush:
			return CapabilitiesFromLines(lines), nil
		case pktline.PacketData:
			lines = append(lines, chompLine(p.Payload))
		default:
			return Capabilities{}, ErrExpectedDataLine
		}
	}
}

// refsReader replays the ref portion of the V1 first line, then serves
// the remaining ref advertisement data lines until the flush packet.
type refsReader struct {
	head []byte
	rd   *pktline.Reader
	done bool
}

func newRefsReader(firstRef string, rd *pktline.Reader) io.Reader {
	var head []byte
	if firstRef != "" {
		head = append([]byte(firstRef), '\n')
	}
	return &refsReader{head: head, rd: rd}
}

func (r *refsReader) Read(p []byte) (int, error) {
	for len(r.head) == 0 {
		if r.done {
			return 0, io.EOF
		}
		pkt, err := r.rd.ReadPacket()
		if err != nil {
			if err == io.EOF {
				r.done = true
				return 0, io.EOF
			}
			return 0, fmt.Errorf("%w: %w", ErrLineDecode, err)
		}
		switch pkt.Kind {
		case pktline.PacketFlush:
			r.done = true
		case pktline.PacketData:
			r.head = pkt.Payload
		default:
			return 0, ErrExpectedDataLine
		}
	}
	n := copy(p, r.head)
	r.head = r.head[n:]
	return n, nil
}

func chompLine(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
