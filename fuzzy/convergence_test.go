// Package fuzzy stress-tests election convergence under many daemons and
// concurrent clients, the way the teacher's fuzzy.Test_ConcurrentCommands
// hammers a cluster with concurrent writes and then asserts every replica
// agrees — here the invariant is "every concurrent client resolves to the
// same port", not "every replica's log matches".
package fuzzy

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jmgarcia/svcdiscover/integration"
	"github.com/jmgarcia/svcdiscover/internal/client"
	"github.com/jmgarcia/svcdiscover/internal/logging"
)

// Scenario 5: 50 daemons gossiping for one service converge on a single
// master, and 50 concurrent clients all resolve to that master's
// advertised port.
func Test_ConcurrentDiscoveryConverges(t *testing.T) {
	const n = 50
	service := integration.ServiceName("stress", n)
	const group = "224.1.1.1"
	const reqPort, syncPort = 17105, 17106

	ports := make([]int, n)
	for i := range ports {
		ports[i] = 1000 + i
	}

	cluster := integration.NewCluster(t, service, group, reqPort, syncPort, ports)
	defer func() {
		if !integration.WaitThisOrTimeout(cluster.Off, 30*time.Second) {
			t.Error("failed shutting down cluster")
		}
		goleak.VerifyNone(t)
	}()

	master := cluster.WaitForMaster(10 * time.Second)
	wantPort := master.GetPort()
	if wantPort == nil {
		t.Fatal("master has no advertised port")
	}

	var group50 sync.WaitGroup
	results := make([]*int, n)
	errs := make([]bool, n)

	lookup := func(idx int) {
		defer group50.Done()
		c := client.New(client.Options{
			MulticastGroup: group,
			RequestPort:    reqPort,
			SyncPort:       syncPort,
			Logger:         logging.NewNop(),
		})
		_, port := c.GetServiceIPAndPort(service, 5*time.Second, 3)
		if port == nil {
			errs[idx] = true
			return
		}
		results[idx] = port
	}

	for i := 0; i < n; i++ {
		group50.Add(1)
		go lookup(i)
	}

	if !integration.WaitThisOrTimeout(group50.Wait, 30*time.Second) {
		t.Fatal("not all concurrent lookups finished within 30 seconds")
	}

	for i, port := range results {
		if errs[i] {
			t.Errorf("client %d: discovery failed", i)
			continue
		}
		if port == nil || *port != *wantPort {
			t.Errorf("client %d: got port %v, want %d", i, port, *wantPort)
		}
	}
}
