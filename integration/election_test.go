package integration

import (
	"testing"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/client"
	"github.com/jmgarcia/svcdiscover/internal/logging"
)

// Scenario 3: four daemons for one service name converge on exactly one
// master, and two sequential client calls both resolve to that master's
// advertised port (all daemons here share one host IP, so the port is what
// identifies the master).
func TestElectionConvergesAndClientsAgree(t *testing.T) {
	service := ServiceName("election", 3)
	const group = "224.1.1.1"
	const reqPort, syncPort = 17005, 17006

	cluster := NewCluster(t, service, group, reqPort, syncPort, []int{2001, 2002, 2003, 2004})
	defer func() {
		if !WaitThisOrTimeout(cluster.Off, 10*time.Second) {
			t.Error("cluster failed to shut down in time")
		}
	}()

	master := cluster.WaitForMaster(5 * time.Second)
	masterPort := master.GetPort()
	if masterPort == nil {
		t.Fatal("master daemon has no advertised port")
	}

	c := client.New(client.Options{
		MulticastGroup: group,
		RequestPort:    reqPort,
		SyncPort:       syncPort,
		Logger:         logging.NewNop(),
	})

	_, firstPort := c.GetServiceIPAndPort(service, 3*time.Second, 2)
	if firstPort == nil || *firstPort != *masterPort {
		t.Fatalf("first lookup returned port %v, want %d", firstPort, *masterPort)
	}

	_, secondPort := c.GetServiceIPAndPort(service, 3*time.Second, 2)
	if secondPort == nil || *secondPort != *masterPort {
		t.Fatalf("second lookup returned port %v, want %d", secondPort, *masterPort)
	}
}

// Scenario 4: the port advertised back to clients always belongs to the
// set configured across the cluster, and matches whichever daemon
// currently holds mastership.
func TestPortAdvertisementMatchesMaster(t *testing.T) {
	service := ServiceName("portadv", 4)
	const group = "224.1.1.1"
	const reqPort, syncPort = 17007, 17008
	ports := []int{1001, 1002, 1003, 1004}

	cluster := NewCluster(t, service, group, reqPort, syncPort, ports)
	defer func() {
		if !WaitThisOrTimeout(cluster.Off, 10*time.Second) {
			t.Error("cluster failed to shut down in time")
		}
	}()

	cluster.WaitForMaster(5 * time.Second)

	c := client.New(client.Options{
		MulticastGroup: group,
		RequestPort:    reqPort,
		SyncPort:       syncPort,
		Logger:         logging.NewNop(),
	})

	_, port := c.GetServiceIPAndPort(service, 3*time.Second, 2)
	if port == nil {
		t.Fatal("expected a port to be advertised")
	}

	found := false
	for _, p := range ports {
		if p == *port {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("advertised port %d not in configured set %v", *port, ports)
	}

	if masterPort := cluster.MasterPort(); masterPort == nil || *masterPort != *port {
		t.Fatalf("advertised port %d does not match current master's port %v", *port, masterPort)
	}
}
