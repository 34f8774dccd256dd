// Package protocol implements the wire grammar shared by every component:
// the discovery request/response pair exchanged on the main multicast port,
// and the sync message gossiped on the election port.
//
// All messages are plain ASCII with no framing beyond one UDP datagram;
// parsing is done byte-by-byte rather than through a regular expression,
// following the byte-level approach over the source's `re.match` use.
package protocol

import (
	"strconv"
)

const (
	// Group is the multicast group every component joins.
	Group = "224.1.1.1"

	// RequestPort carries discovery requests; responses go unicast to the
	// requester's ephemeral port, not to this one.
	RequestPort = 5005

	// SyncPort carries election gossip.
	SyncPort = 5007

	// SyncReadInterval is the base read timeout for one sync observation;
	// the election engine reads with 2x this value (spec §4.C).
	SyncReadInterval = 500 // milliseconds

	// SyncSendInterval is the sync-tx loop's tick period.
	SyncSendInterval = 500 // milliseconds

	// ReadOwnMaxCount is how many consecutive equal-token observations a
	// candidate needs before self-promoting to master.
	ReadOwnMaxCount = 3

	// MTU bounds a single outgoing unicast datagram; larger payloads are
	// split into back-to-back datagrams with no reassembly on read.
	MTU = 1500

	// MaxToken bounds the uniformly random initial sync token (inclusive).
	MaxToken = 1000000

	requestPrefix  = "Who's "
	requestSuffix  = "?"
	responsePrefix = "I'm "
	portSep        = '#'
	syncSep        = '.'
)

// BuildRequest encodes a discovery request for service, advertising the
// caller's ephemeral listener port so the master can reply unicast.
func BuildRequest(service string, ephemeralPort int) []byte {
	b := make([]byte, 0, len(requestPrefix)+len(service)+1+1+6)
	b = append(b, requestPrefix...)
	b = append(b, service...)
	b = append(b, requestSuffix...)
	b = append(b, portSep)
	b = strconv.AppendInt(b, int64(ephemeralPort), 10)
	return b
}

// ParseRequest splits a datagram on '#' and validates the prefix matches
// "Who's <service>?" and the suffix is a positive port number. Malformed
// or service-mismatched datagrams report ok=false and must be dropped.
func ParseRequest(data []byte, service string) (port int, ok bool) {
	idx := indexByte(data, portSep)
	if idx < 0 {
		return 0, false
	}
	prefix := data[:idx]
	expected := requestPrefix + service + requestSuffix
	if string(prefix) != expected {
		return 0, false
	}
	n, err := strconv.Atoi(string(data[idx+1:]))
	if err != nil || n <= 0 || n > 65535 {
		return 0, false
	}
	return n, true
}

// BuildResponse encodes a discovery response. When servicePort is nil the
// response carries no port suffix.
func BuildResponse(service string, servicePort *int) []byte {
	b := make([]byte, 0, len(responsePrefix)+len(service)+7)
	b = append(b, responsePrefix...)
	b = append(b, service...)
	if servicePort != nil {
		b = append(b, portSep)
		b = strconv.AppendInt(b, int64(*servicePort), 10)
	}
	return b
}

// ParseResponse validates the byte prefix equals "I'm <service>" exactly
// (spec invariant I4) and, if present, parses the trailing port.
func ParseResponse(data []byte, service string) (port *int, ok bool) {
	expected := responsePrefix + service
	idx := indexByte(data, portSep)
	if idx < 0 {
		if string(data) != expected {
			return nil, false
		}
		return nil, true
	}
	if string(data[:idx]) != expected {
		return nil, false
	}
	n, err := strconv.Atoi(string(data[idx+1:]))
	if err != nil {
		return nil, false
	}
	return &n, true
}

// BuildSync encodes a gossip message carrying the sender's current token.
func BuildSync(service string, token int) []byte {
	b := make([]byte, 0, len(service)+1+7)
	b = append(b, service...)
	b = append(b, syncSep)
	b = strconv.AppendInt(b, int64(token), 10)
	return b
}

// ParseSync validates the service-name prefix and '.' separator, then
// parses a non-negative decimal token (spec invariant I3).
func ParseSync(data []byte, service string) (token int, ok bool) {
	if len(data) <= len(service) {
		return 0, false
	}
	if string(data[:len(service)]) != service {
		return 0, false
	}
	if data[len(service)] != syncSep {
		return 0, false
	}
	rest := data[len(service)+1:]
	if len(rest) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(rest))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func indexByte(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return -1
}
