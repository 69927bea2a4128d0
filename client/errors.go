package client

import "errors"

var (
	ErrCapabilities         = errors.New("client: malformed capability advertisement")
	ErrLineDecode           = errors.New("client: malformed packet line")
	ErrExpectedLine         = errors.New("client: expected line is missing")
	ErrExpectedDataLine     = errors.New("client: expected a data line, got a delimiter")
	ErrHandshakeIncomplete  = errors.New("client: request requires a completed handshake")
	ErrWriterDone           = errors.New("client: request writer is already finished")
	ErrArgumentsUnsupported = errors.New("client: v2 command arguments are not implemented")
)
