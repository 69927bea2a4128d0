package gitproto

import (
	"strconv"

	"github.com/danmuck/gitwire/client"
)

// daemonRequest builds the git-daemon service request payload:
//
//	<service> SP <path> NUL [host=<host> NUL] [NUL <param> NUL ...]
//
// No trailing LF; the daemon treats the packet as a binary record.
// The version parameter is appended as an extra parameter for every
// protocol above V1, which is how negotiation is requested.
func daemonRequest(service client.Service, path, virtualHost string, version client.Protocol, extra []string) []byte {
	params := make([]string, 0, len(extra)+1)
	if version > client.V1 {
		params = append(params, "version="+strconv.Itoa(int(version)))
	}
	params = append(params, extra...)

	out := make([]byte, 0, 64)
	out = append(out, service.String()...)
	out = append(out, ' ')
	out = append(out, path...)
	out = append(out, 0)
	if virtualHost != "" {
		out = append(out, "host="...)
		out = append(out, virtualHost...)
		out = append(out, 0)
	}
	if len(params) > 0 {
		out = append(out, 0)
		for _, p := range params {
			out = append(out, p...)
			out = append(out, 0)
		}
	}
	return out
}
