// Package integration provides multi-daemon test helpers shared by the
// election and stress-convergence tests, adapted from the teacher's
// test.UnityCluster (spin up N replicas sharing one partition name, then
// tear them all down concurrently and verify they agree).
//
// Here a "cluster" is N daemons sharing one service name and one
// multicast address triple, each advertising a distinct port, so a test
// can assert that the election converges on exactly one master and that
// clients observe that master's advertised port.
package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/daemon"
	"github.com/jmgarcia/svcdiscover/internal/logging"
)

// Cluster is a group of daemons all answering for the same service name
// on the same multicast addressing, each with its own advertised port.
type Cluster struct {
	T       *testing.T
	Service string
	Daemons []*daemon.Daemon
	Ports   []int

	group sync.WaitGroup
}

// NewCluster starts one daemon per entry of ports for service, bound to
// group/reqPort/syncPort, daemon i advertising ports[i]. It skips the test outright if multicast sockets
// aren't available in the sandbox, the same fallback every other package in
// this module uses.
func NewCluster(t *testing.T, service string, group string, reqPort, syncPort int, ports []int) *Cluster {
	t.Helper()
	c := &Cluster{T: t, Service: service, Ports: ports}

	for i, port := range ports {
		d, err := daemon.New(service, daemon.Options{
			MulticastGroup: group,
			RequestPort:    reqPort,
			SyncPort:       syncPort,
			Logger:         logging.NewNop(),
		})
		if err != nil {
			for _, started := range c.Daemons {
				started.Stop()
			}
			t.Skipf("multicast not available in this environment: %v", err)
		}
		d.SetPort(port)
		d.Run()
		c.Daemons = append(c.Daemons, d)
		_ = i
	}
	return c
}

// WaitForMaster polls until exactly one daemon in the cluster reports
// IsMaster(), or fails the test once timeout elapses.
func (c *Cluster) WaitForMaster(timeout time.Duration) *daemon.Daemon {
	c.T.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var master *daemon.Daemon
		count := 0
		for _, d := range c.Daemons {
			if d.IsMaster() {
				count++
				master = d
			}
		}
		if count == 1 {
			return master
		}
		time.Sleep(50 * time.Millisecond)
	}
	c.T.Fatalf("cluster for %q never converged on a single master within %v", c.Service, timeout)
	return nil
}

// MasterPort returns the advertised port of whichever daemon currently
// holds mastership, or nil if none does.
func (c *Cluster) MasterPort() *int {
	for _, d := range c.Daemons {
		if d.IsMaster() {
			return d.GetPort()
		}
	}
	return nil
}

// Off stops every daemon concurrently, mirroring UnityCluster.Off.
func (c *Cluster) Off() {
	for _, d := range c.Daemons {
		c.group.Add(1)
		go c.poweroff(d)
	}
	c.group.Wait()
}

func (c *Cluster) poweroff(d *daemon.Daemon) {
	defer c.group.Done()
	d.Stop()
}

// WaitThisOrTimeout runs cb in a goroutine and reports whether it finished
// within duration.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

// ServiceName returns a unique-enough service name for a given test
// prefix, so tests that share a process don't collide on sync tokens left
// over from a previous test's daemons.
func ServiceName(prefix string, salt int) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), salt)
}
