// Package netio implements the two UDP transports every component rests
// on: the multicast endpoint (spec §4.A) shared by the request and sync
// channels, and the ephemeral unicast listener (spec §4.B) over which a
// daemon sends, and a client receives, the discovery response.
//
// The multicast endpoint is grounded on golang.org/x/net/ipv4's multicast
// control surface, the same package R2Northstar-Atlas's go.mod carries and
// the pattern the retrieval pack's internal/mcast/mcast.go
// (rcarmo-codebits-tv) uses for SO_REUSEADDR + JoinGroup. The unicast
// listener uses plain net.ListenUDP.
package netio

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/jmgarcia/svcdiscover/internal/logging"
)

var errNotUDPConn = errors.New("netio: listen config did not return a UDP connection")

// pollInterval bounds how long a single recv blocks before re-checking the
// closed flag, so Close() becomes visible within roughly one poll interval
// (spec §4.A, §5).
const pollInterval = 100 * time.Millisecond

// recvBufferSize is comfortably above MTU; discovery/sync payloads never
// approach it.
const recvBufferSize = 4096

// MulticastEndpoint binds to a multicast group+port, joins the group on
// the default interface, and exposes bounded-time send/receive/close.
// It backs both the main discovery channel (port 5005) and the sync
// election channel (port 5007); which one it is is just a matter of the
// port passed to New.
type MulticastEndpoint struct {
	group net.IP
	port  int
	log   logging.Logger

	conn *net.UDPConn
	pc   *ipv4.PacketConn

	mu     sync.Mutex
	closed bool
}

// New binds to groupIP:port, joining the multicast group. It sets
// SO_REUSEADDR before bind so multiple daemons on the same host can share
// the port, and attempts to bind to the group address itself, falling
// back to the wildcard address when the OS refuses (spec §4.A).
func New(groupIP string, port int, log logging.Logger) (*MulticastEndpoint, error) {
	if log == nil {
		// Callers that don't care to wire a component logger still get
		// their socket errors reported somewhere, the way the teacher's
		// transport code logs straight onto the prometheus/common/log
		// global regardless of who constructed it.
		log = logging.NewTransportLogger()
	}
	ip := net.ParseIP(groupIP)
	lc := net.ListenConfig{Control: setReuseAddr}

	addr := net.JoinHostPort(groupIP, itoa(port))
	pconn, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		// Fall back to the wildcard address; some platforms refuse to
		// bind directly to a multicast group address.
		pconn, err = lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("", itoa(port)))
		if err != nil {
			return nil, err
		}
	}

	udpConn, ok := pconn.(*net.UDPConn)
	if !ok {
		pconn.Close()
		return nil, errNotUDPConn
	}

	pc := ipv4.NewPacketConn(udpConn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
		udpConn.Close()
		return nil, err
	}
	// Recommended TTL per spec §4.A; best-effort, a failure here doesn't
	// prevent same-subnet discovery from working.
	_ = pc.SetMulticastTTL(2)
	_ = pc.SetMulticastLoopback(true)

	return &MulticastEndpoint{
		group: ip,
		port:  port,
		log:   log,
		conn:  udpConn,
		pc:    pc,
	}, nil
}

// Send broadcasts msg to the group. It returns false without blocking on
// the network when the endpoint is closed or the underlying write fails
// (spec §7: send failure is a boolean, never fatal).
func (m *MulticastEndpoint) Send(msg []byte) bool {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return false
	}

	dst := &net.UDPAddr{IP: m.group, Port: m.port}
	if _, err := m.pc.WriteTo(msg, nil, dst); err != nil {
		m.log.Errorf("multicast send to %s:%d failed: %v", m.group, m.port, err)
		return false
	}
	return true
}

// Read blocks for up to timeout for a datagram, returning its payload and
// source address. A negative timeout waits until Close() or a datagram
// arrives. Once closed, Read returns a null result promptly.
func (m *MulticastEndpoint) Read(timeout time.Duration) (payload []byte, srcIP net.IP, srcPort int) {
	deadline := time.Time{}
	unbounded := timeout < 0
	if !unbounded {
		deadline = time.Now().Add(timeout)
	}

	buf := make([]byte, recvBufferSize)
	for {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
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
		_ = m.conn.SetReadDeadline(time.Now().Add(next))

		n, _, src, err := m.pc.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			// Closed sockets, and any other transient error, surface as
			// a null read rather than propagating (spec §7).
			return nil, nil, 0
		}

		udpSrc, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		out := make([]byte, n)
		copy(out, buf[:n])
		return out, udpSrc.IP, udpSrc.Port
	}
}

// Close is idempotent; subsequent reads return null promptly and sends
// return false.
func (m *MulticastEndpoint) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	_ = m.pc.Close()
}

func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			ctrlErr = e
			return
		}
		// SO_REUSEPORT isn't available on every platform unix targets;
		// a failure here is non-fatal, SO_REUSEADDR alone is enough for
		// the spec's "multiple daemons on one host" test scenarios.
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
