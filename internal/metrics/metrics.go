// Package metrics exposes counters for the events spec.md's core leaves
// unobserved: requests served, responses sent, election transitions, and
// sync traffic volume. None of this is required by the protocol itself —
// the Non-goals in spec §1 never exclude observability, so this is purely
// additive ambient/domain stack, wired onto
// github.com/VictoriaMetrics/metrics, the metrics library
// r2northstar/atlas carries in its go.mod.
package metrics

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics holds one daemon or client's counters, each namespaced by
// service name so a single process running several daemons for different
// services reports them separately.
type Metrics struct {
	set *metrics.Set

	requestsServed *metrics.Counter
	responsesSent  *metrics.Counter
	syncSent       *metrics.Counter
	syncReceived   *metrics.Counter
	masterGained   *metrics.Counter
	masterLost     *metrics.Counter

	requestAttempts *metrics.Counter
	discoverFound   *metrics.Counter
	discoverTimeout *metrics.Counter
}

// New creates a counter set tagged with the given service name and role
// ("daemon" or "client"), and registers it on the default registry so it
// is scraped alongside anything else the process exposes.
func New(service, role string) *Metrics {
	set := metrics.NewSet()
	labels := `{service="` + service + `",role="` + role + `"}`

	m := &Metrics{
		set:            set,
		requestsServed: set.NewCounter("discovery_requests_served_total" + labels),
		responsesSent:  set.NewCounter("discovery_responses_sent_total" + labels),
		syncSent:       set.NewCounter("discovery_sync_sent_total" + labels),
		syncReceived:   set.NewCounter("discovery_sync_received_total" + labels),
		masterGained:   set.NewCounter("discovery_master_gained_total" + labels),
		masterLost:     set.NewCounter("discovery_master_lost_total" + labels),

		requestAttempts: set.NewCounter("discovery_client_request_attempts_total" + labels),
		discoverFound:   set.NewCounter("discovery_client_found_total" + labels),
		discoverTimeout: set.NewCounter("discovery_client_timeout_total" + labels),
	}
	metrics.RegisterSet(set)
	return m
}

// RequestServed records that this daemon answered a discovery request
// (only possible while it held sync_token == 0, spec invariant I2).
func (m *Metrics) RequestServed() { m.requestsServed.Inc() }

// ResponseSent records a unicast response delivered to a requester.
func (m *Metrics) ResponseSent() { m.responsesSent.Inc() }

// SyncSent implements election.Recorder.
func (m *Metrics) SyncSent() { m.syncSent.Inc() }

// SyncReceived implements election.Recorder.
func (m *Metrics) SyncReceived() { m.syncReceived.Inc() }

// MasterGained implements election.Recorder.
func (m *Metrics) MasterGained() { m.masterGained.Inc() }

// MasterLost implements election.Recorder.
func (m *Metrics) MasterLost() { m.masterLost.Inc() }

// RequestAttempt records one client request-loop iteration (spec §4.E
// step 3).
func (m *Metrics) RequestAttempt() { m.requestAttempts.Inc() }

// DiscoverFound records a successful discovery round trip.
func (m *Metrics) DiscoverFound() { m.discoverFound.Inc() }

// DiscoverTimeout records a discovery attempt that exhausted its budget
// without a result (either the election barrier or the retry loop).
func (m *Metrics) DiscoverTimeout() { m.discoverTimeout.Inc() }

// Close unregisters the set so a daemon that's stopped (and maybe
// recreated under the same service name in the same process, as tests
// do) doesn't collide on metric names.
func (m *Metrics) Close() {
	metrics.UnregisterSet(m.set)
}

// Handler exposes this process's full default-registry metrics in
// Prometheus text exposition format, for cmd/discoverd to mount under
// /metrics.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}
