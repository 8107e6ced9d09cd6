package gateway

import (
	"bytes"

	"github.com/marmos91/fileshare/pkg/session"
)

var (
	httpVersionMarker = []byte("HTTP/")
	getPrefix         = []byte("GET ")
	postPrefix        = []byte("POST ")
)

// Sniff classifies the first bytes a peer sent. Anything that mentions an
// HTTP version or opens with GET or POST is HTTP; any other non-empty buffer
// is the command protocol. An empty buffer means the peer sent nothing.
func Sniff(initial []byte) session.Protocol {
	switch {
	case len(initial) == 0:
		return session.ProtocolUnknown
	case bytes.Contains(initial, httpVersionMarker),
		bytes.HasPrefix(initial, getPrefix),
		bytes.HasPrefix(initial, postPrefix):
		return session.ProtocolHTTP
	default:
		return session.ProtocolCommand
	}
}
