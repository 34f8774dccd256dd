package daemon

import (
	"testing"
	"time"

	"github.com/jmgarcia/svcdiscover/internal/logging"
)

func newTestDaemon(t *testing.T, reqPort, syncPort int) *Daemon {
	t.Helper()
	d, err := New("test", Options{
		MulticastGroup: "224.1.1.1",
		RequestPort:    reqPort,
		SyncPort:       syncPort,
		Logger:         logging.NewNop(),
	})
	if err != nil {
		t.Skipf("multicast not available in this environment: %v", err)
	}
	return d
}

// Scenario 1 (spec §8): start, run, stop; the main worker must no longer
// be alive afterwards.
func TestStartStop(t *testing.T) {
	d := newTestDaemon(t, 16201, 16202)
	done := d.Run()
	time.Sleep(200 * time.Millisecond)
	d.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request handler did not stop within budget")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := newTestDaemon(t, 16203, 16204)
	d.Run()
	d.Stop()
	d.Stop()
}

func TestSoleDaemonBecomesMaster(t *testing.T) {
	d := newTestDaemon(t, 16205, 16206)
	d.Run()
	defer d.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if d.IsMaster() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("lone daemon never became master")
}

func TestSetGetPort(t *testing.T) {
	d := newTestDaemon(t, 16207, 16208)
	defer d.Stop()

	if d.GetPort() != nil {
		t.Fatal("expected no port set initially")
	}
	d.SetPort(1234)
	if p := d.GetPort(); p == nil || *p != 1234 {
		t.Fatalf("expected port 1234, got %v", p)
	}
}

func TestSetGetEnable(t *testing.T) {
	d := newTestDaemon(t, 16209, 16210)
	defer d.Stop()

	if !d.GetEnable() {
		t.Fatal("expected enabled by default")
	}
	d.SetEnable(false)
	if d.GetEnable() {
		t.Fatal("expected disabled after SetEnable(false)")
	}
}
