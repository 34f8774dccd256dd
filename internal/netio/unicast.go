package netio

import (
	"net"
	"sync"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/protocol"
)

// UnicastListener binds a UDP socket on an OS-assigned port. A client
// constructs one per discovery attempt (spec §4.B, §4.E) to receive its
// response; a daemon's request handler opens one transiently to send a
// response back to the requester (spec §4.D).
type UnicastListener struct {
	conn *net.UDPConn

	mu     sync.Mutex
	closed bool
}

// NewUnicastListener binds to an OS-assigned port on all interfaces.
func NewUnicastListener() (*UnicastListener, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	return &UnicastListener{conn: conn}, nil
}

// Port returns the OS-assigned local port, advertised inside discovery
// requests so the master can reply here.
func (u *UnicastListener) Port() int {
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// Read blocks for up to timeout for a datagram, mirroring
// MulticastEndpoint.Read's semantics: negative timeout waits forever,
// closed/timeout both report a null result.
func (u *UnicastListener) Read(timeout time.Duration) (payload []byte, srcIP net.IP, srcPort int) {
	deadline := time.Time{}
	unbounded := timeout < 0
	if !unbounded {
		deadline = time.Now().Add(timeout)
	}

	buf := make([]byte, recvBufferSize)
	for {
		u.mu.Lock()
		closed := u.closed
		u.mu.Unlock()
		if closed {
			return nil, nil, 0
		}

		if !unbounded && time.Now().After(deadline) {
			return nil, nil, 0
		}

		next := pollInterval
		if !unbounded {
			if remaining := time.Until(deadline); remaining < next {
				next = remaining
			}
		}
		_ = u.conn.SetReadDeadline(time.Now().Add(next))

		n, src, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return nil, nil, 0
		}
		out := make([]byte, n)
		copy(out, buf[:n])
		return out, src.IP, src.Port
	}
}

// Send writes msg to (ip, port). Payloads larger than MTU are split into
// back-to-back datagrams with no reassembly on read (spec §4.B); every
// discovery/response/sync payload in this protocol is well below that
// bound, so in practice this always sends a single datagram.
func (u *UnicastListener) Send(ip net.IP, port int, msg []byte) bool {
	u.mu.Lock()
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return false
	}

	dst := &net.UDPAddr{IP: ip, Port: port}
	ok := true
	for start := 0; start < len(msg) || (len(msg) == 0 && start == 0); start += protocol.MTU {
		end := start + protocol.MTU
		if end > len(msg) {
			end = len(msg)
		}
		if _, err := u.conn.WriteToUDP(msg[start:end], dst); err != nil {
			ok = false
		}
		if len(msg) == 0 {
			break
		}
	}
	return ok
}

// Close is idempotent.
func (u *UnicastListener) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.closed = true
	_ = u.conn.Close()
}
