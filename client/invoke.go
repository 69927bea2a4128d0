package client

// Invoke runs one protocol V2 command over t: a line-framed request
// carrying "command=<name>" followed by the capability pairs in the
// caller's order, closed by a flush packet when the write phase ends.
//
// The Transport must have negotiated V2 beforehand; invoking against a
// V1 handshake produces protocol-incorrect bytes and is a caller
// error. A non-nil arguments slice fails with ErrArgumentsUnsupported:
// the upstream protocol leaves the argument wire format unspecified
// and silently dropping them would be worse than refusing.
func Invoke(t Transport, command string, capabilities []Capability, arguments []string) (*ResponseReader, error) {
	if arguments != nil {
		return nil, ErrArgumentsUnsupported
	}
	w, err := t.Request(WriteOneLFTerminatedLinePerWriteCall, []Message{FlushMessage()})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte("command=" + command)); err != nil {
		return nil, err
	}
	for _, c := range capabilities {
		if _, err := w.Write([]byte(c.token())); err != nil {
			return nil, err
		}
	}
	return w.IntoRead()
}
