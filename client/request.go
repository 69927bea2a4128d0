package client

import (
	"fmt"
	"io"

	"github.com/danmuck/gitwire/pktline"
)

// RequestWriter is the write phase of one exchange. It frames payload
// bytes per the selected WriteMode and owns the teardown control
// messages scheduled at construction. Exactly one RequestWriter may be
// active per Transport; it is consumed by IntoRead or Close.
type RequestWriter struct {
	fw       *pktline.Writer
	sink     io.Writer
	onDone   []Message
	response ExtendedBufRead
	done     bool
}

// NewRequestWriter binds a framed writer over sink to its
// reader-in-waiting. Backends construct one per Request call; onDone
// is drained FIFO exactly once when the write phase ends.
func NewRequestWriter(sink io.Writer, response ExtendedBufRead, mode WriteMode, onDone []Message) *RequestWriter {
	fm := pktline.ModeBinary
	if mode == WriteOneLFTerminatedLinePerWriteCall {
		fm = pktline.ModeText
	}
	return &RequestWriter{
		fw:       pktline.NewWriter(sink, fm),
		sink:     sink,
		onDone:   onDone,
		response: response,
	}
}

func (w *RequestWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrWriterDone
	}
	return w.fw.Write(p)
}

// IntoRead ends the write phase and yields the response reader. The
// transition is one-way: the writer is unusable afterwards and the
// queued teardown messages fire here, exactly once.
func (w *RequestWriter) IntoRead() (*ResponseReader, error) {
	if w.done {
		return nil, ErrWriterDone
	}
	w.finish()
	return &ResponseReader{inner: w.response}, nil
}

// Close abandons the request without reading a response. Teardown
// messages still fire so the remote observes a well-formed exchange.
// Safe to call after IntoRead.
func (w *RequestWriter) Close() error {
	if w.done {
		return nil
	}
	w.finish()
	return nil
}

// finish drains the teardown queue. No error-reporting path exists
// once teardown has begun, so an emission failure escalates to a
// panic instead of corrupting the protocol silently.
func (w *RequestWriter) finish() {
	w.done = true
	for _, msg := range w.onDone {
		var err error
		switch msg.Kind {
		case MessageText:
			err = pktline.WriteTextPacket(w.sink, msg.Text)
		default:
			err = pktline.WriteFlush(w.sink)
		}
		if err != nil {
			panic(fmt.Sprintf("client: teardown control packet emission failed: %v", err))
		}
	}
	w.onDone = nil
}
