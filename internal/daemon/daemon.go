// Package daemon ties the multicast endpoints, the election engine, and
// the discovery request handler together (spec §4.D): answers requests on
// the main multicast port only while the local election engine says "I am
// master", replying unicast to the requester's ephemeral port.
//
// The orchestration shape — a context-cancellable set of worker
// goroutines tracked by a WaitGroup, a run-once Stop that closes the
// owned sockets and joins every worker — follows the teacher's
// pkg/mcast.Unity (poweroff/contextHolder, run()/poll()) and
// pkg/mcast/core.Peer (context + finish, poll() select loop) shape.
package daemon

import (
	"context"
	"net"
	"sync"

	"github.com/jmgarcia/svcdiscover/internal/election"
	"github.com/jmgarcia/svcdiscover/internal/logging"
	"github.com/jmgarcia/svcdiscover/internal/metrics"
	"github.com/jmgarcia/svcdiscover/internal/netio"
	"github.com/jmgarcia/svcdiscover/internal/protocol"
	"github.com/jmgarcia/svcdiscover/internal/workerpool"
)

// Daemon exclusively owns its three UDP endpoints — well, two multicast
// endpoints plus whatever transient unicast sockets the request handler
// opens per response — and its worker set (spec §3 Ownership).
type Daemon struct {
	serviceName string
	log         logging.Logger
	metrics     *metrics.Metrics

	request *netio.MulticastEndpoint
	sync    *netio.MulticastEndpoint
	engine  *election.Engine

	portMu      sync.Mutex
	servicePort *int

	group  workerpool.Group
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce sync.Once
}

// Options configures where a Daemon listens; zero-value fields fall back
// to the spec §6 wire constants.
type Options struct {
	MulticastGroup string
	RequestPort    int
	SyncPort       int
	Logger         logging.Logger
	Metrics        *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.MulticastGroup == "" {
		o.MulticastGroup = protocol.Group
	}
	if o.RequestPort == 0 {
		o.RequestPort = protocol.RequestPort
	}
	if o.SyncPort == 0 {
		o.SyncPort = protocol.SyncPort
	}
	if o.Logger == nil {
		o.Logger = logging.New("daemon")
	}
	return o
}

// New constructs a daemon bound to serviceName. It binds both multicast
// endpoints immediately (spec §3 Lifecycles: "constructed bound to a
// service name"); Run starts the three workers.
func New(serviceName string, opts Options) (*Daemon, error) {
	opts = opts.withDefaults()

	requestEP, err := netio.New(opts.MulticastGroup, opts.RequestPort, opts.Logger)
	if err != nil {
		return nil, err
	}
	syncEP, err := netio.New(opts.MulticastGroup, opts.SyncPort, opts.Logger)
	if err != nil {
		requestEP.Close()
		return nil, err
	}

	var recorder election.Recorder = election.NopRecorder{}
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}

	d := &Daemon{
		serviceName: serviceName,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		request:     requestEP,
		sync:        syncEP,
		engine:      election.New(serviceName, syncEP, opts.Logger, recorder),
	}
	return d, nil
}

// Run spawns the three cooperating workers (sync-tx, sync-rx, request
// handler) and returns a channel that closes once the request handler —
// the main worker — exits, standing in for the Python original's thread
// handle.
func (d *Daemon) Run() <-chan struct{} {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.done = make(chan struct{})

	d.engine.Start(d.ctx, &d.group)
	d.group.Spawn(d.requestLoop)

	return d.done
}

// requestLoop blocks on the main multicast group for discovery requests.
// Each datagram is parsed, and a response is only sent while this daemon
// currently holds sync_token == 0 (invariant I2) — the daemon never
// answers when it is not master.
func (d *Daemon) requestLoop() {
	defer close(d.done)
	defer d.log.Debugf("%q: request handler stopped", d.serviceName)

	for {
		data, srcIP, _ := d.request.Read(-1)
		if data == nil {
			// Either the endpoint was closed (shutdown) or a transient
			// read error occurred; either way there's nothing to retry
			// here, the loop just re-enters unless we were closed.
			if d.ctx.Err() != nil {
				return
			}
			continue
		}

		ephemeralPort, ok := protocol.ParseRequest(data, d.serviceName)
		if !ok {
			continue
		}

		if !d.engine.IsMaster() {
			continue
		}

		d.respond(srcIP, ephemeralPort)
	}
}

// respond opens a transient unicast sender to (ip, port) — the
// requester's ephemeral listener — and sends either "I'm S" or
// "I'm S#<servicePort>" depending on whether an operator configured one.
func (d *Daemon) respond(ip net.IP, port int) {
	sender, err := netio.NewUnicastListener()
	if err != nil {
		d.log.Errorf("%q: failed opening response socket: %v", d.serviceName, err)
		return
	}
	defer sender.Close()

	resp := protocol.BuildResponse(d.serviceName, d.GetPort())
	if d.metrics != nil {
		d.metrics.RequestServed()
	}
	if sender.Send(ip, port, resp) && d.metrics != nil {
		d.metrics.ResponseSent()
	}
}

// Version identifies the release lineage; see SPEC_FULL.md §11.
const Version = "1.0.0"

// IsMaster reports whether this daemon is currently the unique answerer
// for its service.
func (d *Daemon) IsMaster() bool {
	return d.engine.IsMaster()
}

// GetEnable reports whether this daemon is currently a candidate in the
// election at all.
func (d *Daemon) GetEnable() bool {
	return d.engine.GetEnable()
}

// SetEnable toggles election candidacy.
func (d *Daemon) SetEnable(enable bool) {
	d.engine.SetEnable(enable)
}

// SetPort sets the operator-configured service port advertised in
// responses.
func (d *Daemon) SetPort(port int) {
	d.portMu.Lock()
	defer d.portMu.Unlock()
	p := port
	d.servicePort = &p
}

// GetPort returns the configured service port, or nil if none was set.
func (d *Daemon) GetPort() *int {
	d.portMu.Lock()
	defer d.portMu.Unlock()
	return d.servicePort
}

// Stop flips the shared run state, closes both multicast endpoints so any
// in-flight read returns promptly, and joins all three workers. It is
// idempotent; after it returns the daemon is terminal (spec §4.D
// Shutdown).
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.request.Close()
		d.sync.Close()
		d.group.Wait()
		if d.metrics != nil {
			d.metrics.Close()
		}
	})
}
