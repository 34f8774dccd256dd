// Package client implements the discovery protocol's client side (spec
// §4.E): wait for a live master on the sync channel, then request/response
// against the main multicast group until a matching answer arrives or the
// retry budget is exhausted.
//
// A client runs single-threaded per call (spec §5) and tears its three
// endpoints down at the end of each GetServiceIP/GetServiceIPAndPort call
// (spec §3 Lifecycles), unlike a Daemon which keeps its endpoints for its
// whole lifetime.
package client

import (
	"net"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/logging"
	"github.com/jmgarcia/svcdiscover/internal/metrics"
	"github.com/jmgarcia/svcdiscover/internal/netio"
	"github.com/jmgarcia/svcdiscover/internal/protocol"
)

// Client performs on-demand discovery attempts against a single
// multicast-capable LAN. It carries no other state between calls.
type Client struct {
	group       string
	requestPort int
	syncPort    int
	log         logging.Logger
	metrics     *metrics.Metrics
}

// Options configures the multicast addressing a Client targets; the
// zero value uses the spec §6 wire constants.
type Options struct {
	MulticastGroup string
	RequestPort    int
	SyncPort       int
	Logger         logging.Logger
	Metrics        *metrics.Metrics
}

// New returns a Client ready for repeated discovery calls.
func New(opts Options) *Client {
	if opts.MulticastGroup == "" {
		opts.MulticastGroup = protocol.Group
	}
	if opts.RequestPort == 0 {
		opts.RequestPort = protocol.RequestPort
	}
	if opts.SyncPort == 0 {
		opts.SyncPort = protocol.SyncPort
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("client")
	}
	return &Client{
		group:       opts.MulticastGroup,
		requestPort: opts.RequestPort,
		syncPort:    opts.SyncPort,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
}

// GetServiceIP discovers the current master for service and returns its
// IP, discarding any advertised service port. A nil result means "not
// found within budget".
func (c *Client) GetServiceIP(service string, timeout time.Duration, retry int) net.IP {
	ip, _ := c.discover(service, timeout, retry)
	return ip
}

// GetServiceIPAndPort is GetServiceIP plus the operator-configured
// service port, if the master advertised one.
func (c *Client) GetServiceIPAndPort(service string, timeout time.Duration, retry int) (net.IP, *int) {
	return c.discover(service, timeout, retry)
}

func (c *Client) discover(service string, timeout time.Duration, retry int) (net.IP, *int) {
	requestSender, err := netio.New(c.group, c.requestPort, c.log)
	if err != nil {
		c.log.Errorf("discover %q: failed opening request channel: %v", service, err)
		return nil, nil
	}
	defer requestSender.Close()

	ephemeral, err := netio.NewUnicastListener()
	if err != nil {
		c.log.Errorf("discover %q: failed opening response listener: %v", service, err)
		return nil, nil
	}
	defer ephemeral.Close()

	syncListener, err := netio.New(c.group, c.syncPort, c.log)
	if err != nil {
		c.log.Errorf("discover %q: failed opening sync listener: %v", service, err)
		return nil, nil
	}
	defer syncListener.Close()

	if !c.waitForMaster(syncListener, service, timeout) {
		c.recordTimeout()
		return nil, nil
	}

	return c.requestLoop(requestSender, ephemeral, service, timeout, retry)
}

// waitForMaster is the election barrier (spec §4.E step 2): read sync
// messages until one matching the service carries token 0, or give up
// once timeout has elapsed since entering the barrier.
func (c *Client) waitForMaster(syncListener *netio.MulticastEndpoint, service string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	readWindow := 2 * protocol.SyncReadInterval * time.Millisecond

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if readWindow < remaining {
			remaining = readWindow
		}

		data, _, _ := syncListener.Read(remaining)
		if data == nil {
			continue
		}
		token, ok := protocol.ParseSync(data, service)
		if !ok {
			continue
		}
		if token == 0 {
			return true
		}
	}
}

// requestLoop is spec §4.E step 3: send the request, wait for a matching
// response, retry up to the configured budget.
func (c *Client) requestLoop(sender *netio.MulticastEndpoint, listener *netio.UnicastListener, service string, timeout time.Duration, retry int) (net.IP, *int) {
	request := protocol.BuildRequest(service, listener.Port())

	for attempt := 0; retry < 0 || attempt <= retry; attempt++ {
		if c.metrics != nil {
			c.metrics.RequestAttempt()
		}
		sender.Send(request)

		data, srcIP, _ := listener.Read(timeout)
		if data != nil {
			if port, ok := protocol.ParseResponse(data, service); ok {
				if c.metrics != nil {
					c.metrics.DiscoverFound()
				}
				return srcIP, port
			}
		}
	}

	c.recordTimeout()
	return nil, nil
}

func (c *Client) recordTimeout() {
	if c.metrics != nil {
		c.metrics.DiscoverTimeout()
	}
}
