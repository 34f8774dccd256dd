package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader("SERVICE_NAME=test\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServiceName != "test" {
		t.Fatalf("expected service name test, got %q", cfg.ServiceName)
	}
	if cfg.ServicePort != nil {
		t.Fatal("expected no service port by default")
	}
	if cfg.MulticastGroup != "224.1.1.1" || cfg.RequestPort != 5005 || cfg.SyncPort != 5007 {
		t.Fatalf("unexpected wire defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := "SERVICE_NAME=test\nSERVICE_PORT=9001\nTIMEOUT_SECONDS=2.5\nRETRY=-1\nMCAST_SYNC_PORT=6007\n"
	cfg, err := Load(strings.NewReader(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServicePort == nil || *cfg.ServicePort != 9001 {
		t.Fatalf("expected service port 9001, got %v", cfg.ServicePort)
	}
	if cfg.TimeoutSeconds != 2.5 {
		t.Fatalf("expected timeout 2.5, got %v", cfg.TimeoutSeconds)
	}
	if cfg.Retry != -1 {
		t.Fatalf("expected retry -1, got %v", cfg.Retry)
	}
	if cfg.SyncPort != 6007 {
		t.Fatalf("expected overridden sync port, got %v", cfg.SyncPort)
	}
}

func TestLoadRequiresServiceName(t *testing.T) {
	if _, err := Load(strings.NewReader("")); err == nil {
		t.Fatal("expected an error for missing SERVICE_NAME")
	}
}
