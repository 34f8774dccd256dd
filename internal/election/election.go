// Package election implements the token-gossip convergence protocol (spec
// §4.C): within a group of daemons sharing a service name, exactly one
// ends up with sync token 0 (master) and the rest hold higher tokens
// (candidates), with the property restored after membership changes.
//
// Two cooperating loops share one Engine's state, mirroring the teacher's
// pattern of a single state record owned by the parent (the daemon here,
// a Peer in pkg/mcast/core/peer.go there) with worker goroutines operating
// on it through methods rather than touching fields directly.
package election

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/logging"
	"github.com/jmgarcia/svcdiscover/internal/netio"
	"github.com/jmgarcia/svcdiscover/internal/protocol"
	"github.com/jmgarcia/svcdiscover/internal/workerpool"
)

// Recorder receives counters for observability; metrics.Metrics implements
// it. Tests and callers that don't care about metrics pass NopRecorder{}.
type Recorder interface {
	SyncSent()
	SyncReceived()
	MasterGained()
	MasterLost()
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) SyncSent()      {}
func (NopRecorder) SyncReceived()  {}
func (NopRecorder) MasterGained()  {}
func (NopRecorder) MasterLost()    {}

// Engine is one daemon's election state plus the two loops that converge
// it: sync-tx (spec §4.C) broadcasts this daemon's token on a timer, and
// sync-rx classifies every observation on the sync channel and mutates
// state accordingly. sync-rx is the sole writer of token, masterCandidate,
// and readOwnIt, except for the re-enable transition in SetEnable (spec
// §5) — both paths take mu, so the "single writer" property is about
// protocol design, not a license to skip the lock.
type Engine struct {
	serviceName string
	sync        *netio.MulticastEndpoint
	log         logging.Logger
	metrics     Recorder

	mu              sync.Mutex
	token           int
	masterCandidate bool
	readOwnIt       int
	enabled         bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an Engine bound to service, gossiping on sync. sync is
// owned by the caller (the daemon) — the Engine never closes it.
func New(service string, sync *netio.MulticastEndpoint, log logging.Logger, metrics Recorder) *Engine {
	if metrics == nil {
		metrics = NopRecorder{}
	}
	e := &Engine{
		serviceName: service,
		sync:        sync,
		log:         log,
		metrics:     metrics,
		masterCandidate: true,
		enabled:         true,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.token = e.drawToken()
	return e
}

// drawToken picks a uniformly random token in [1, MaxToken].
func (e *Engine) drawToken() int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return 1 + e.rng.Intn(protocol.MaxToken)
}

// Start spawns the sync-tx and sync-rx loops onto group. Both loops exit
// only once ctx is cancelled; closing the sync endpoint does not stop
// them, it only makes a blocked sync-rx read return promptly, so a caller
// shutting down cancels ctx and closes the endpoint together (as
// Daemon.Stop does).
func (e *Engine) Start(ctx context.Context, group *workerpool.Group) {
	group.Spawn(func() { e.syncTxLoop(ctx) })
	group.Spawn(func() { e.syncRxLoop(ctx) })
}

func (e *Engine) syncTxLoop(ctx context.Context) {
	defer e.log.Debugf("election sync-tx for %q stopped", e.serviceName)
	ticker := time.NewTicker(protocol.SyncSendInterval * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			shouldSend := e.enabled && e.masterCandidate
			token := e.token
			e.mu.Unlock()
			if shouldSend {
				if e.sync.Send(protocol.BuildSync(e.serviceName, token)) {
					e.metrics.SyncSent()
				}
			}
		}
	}
}

func (e *Engine) syncRxLoop(ctx context.Context) {
	defer e.log.Debugf("election sync-rx for %q stopped", e.serviceName)
	readTimeout := 2 * protocol.SyncReadInterval * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}

		data, _, _ := e.sync.Read(readTimeout)
		if ctx.Err() != nil {
			return
		}

		if data == nil {
			e.onTimeout()
			continue
		}

		token, ok := protocol.ParseSync(data, e.serviceName)
		if !ok {
			// Malformed or belongs to a different service name; the sync
			// channel is an open group, noise is expected (spec §7).
			continue
		}
		e.metrics.SyncReceived()
		e.onObservation(token)
	}
}

// onTimeout handles "no sync message observed within the read window":
// candidacy re-enables and the self-echo counter resets (spec §4.C).
func (e *Engine) onTimeout() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.masterCandidate = true
	e.readOwnIt = 0
}

// onObservation classifies a validly-parsed sync token against our own
// and mutates state per the spec §4.C table.
func (e *Engine) onObservation(observed int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case observed < e.token:
		e.masterCandidate = false
		e.readOwnIt = 0
	case observed == e.token:
		e.readOwnIt++
		if e.readOwnIt >= protocol.ReadOwnMaxCount {
			wasMaster := e.token == 0
			e.token = 0
			if !wasMaster {
				e.metrics.MasterGained()
				e.log.Infof("%q: self-promoted to master", e.serviceName)
			}
		}
	default: // observed > e.token
		e.readOwnIt = 0
	}
}

// IsMaster reports whether this daemon currently believes it is the
// unique answerer for the service (invariant I1: equivalent to
// token == 0).
func (e *Engine) IsMaster() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token == 0
}

// Token returns the current sync token, mainly for tests and diagnostics.
func (e *Engine) Token() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// GetEnable reports whether this daemon is currently a candidate for
// election at all.
func (e *Engine) GetEnable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetEnable toggles candidacy. Transitioning from disabled to enabled
// redraws a fresh random token, so a stale token == 0 from a prior
// mastership doesn't persist into the new candidacy (spec §4.C re-enable
// transition).
func (e *Engine) SetEnable(enable bool) {
	e.mu.Lock()
	wasMaster := e.token == 0
	if !e.enabled && enable {
		e.token = e.drawTokenLocked()
		e.masterCandidate = true
		e.readOwnIt = 0
	}
	e.enabled = enable
	isMasterNow := e.token == 0
	e.mu.Unlock()

	if wasMaster && !isMasterNow {
		e.metrics.MasterLost()
	}
}

// drawTokenLocked draws a token without taking rngMu's sibling mu lock;
// callers must already hold mu. The RNG itself still needs rngMu since
// tests may read tokens concurrently with draws from the caller's own
// goroutine — kept as a fine-grained lock distinct from the state lock.
func (e *Engine) drawTokenLocked() int {
	return e.drawToken()
}
