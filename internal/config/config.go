// Package config loads the handful of settings the core consumes (spec
// §6): service name, optional service port, client timeout/retry, and the
// multicast addressing (overridable so tests and multi-tenant hosts can
// run on an isolated group). Parsing comes from
// github.com/hashicorp/go-envparse, the same env-file parser
// r2northstar/atlas uses for its own cmd/atlas/main.go.
//
// This package is only ever imported by cmd/discoverd — the core packages
// (internal/daemon, internal/client, internal/election) take plain Options
// values built from a Config and never know an env file or a flag exists,
// matching spec §1's "command-line argument parsing... not specified".
package config

import (
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-envparse"
)

// Config is the full set of options the core accepts from its host.
type Config struct {
	ServiceName string
	ServicePort *int // daemon-only; nil means "no port advertised"

	TimeoutSeconds float64 // client-only
	Retry          int     // client-only; negative means unbounded

	MulticastGroup string
	RequestPort    int
	SyncPort       int
}

// Default mirrors the spec §6 wire constants, with a 5 second timeout and
// no retry cap beyond a single attempt — the same defaults the Python
// original's client.getServiceIP(timeout=5, retry=0) ships with.
func Default(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		TimeoutSeconds: 5,
		Retry:          0,
		MulticastGroup: "224.1.1.1",
		RequestPort:    5005,
		SyncPort:       5007,
	}
}

var errEmptyServiceName = errors.New("config: SERVICE_NAME must not be empty")

// Load reads environment-variable-style KEY=VALUE pairs from r (an opened
// env file) and overlays them onto Default(""). SERVICE_NAME is required.
func Load(r io.Reader) (Config, error) {
	vars, err := envparse.Parse(r)
	if err != nil {
		return Config{}, err
	}

	cfg := Default(vars["SERVICE_NAME"])
	if cfg.ServiceName == "" {
		return Config{}, errEmptyServiceName
	}

	if v, ok := vars["SERVICE_PORT"]; ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.ServicePort = &p
	}
	if v, ok := vars["TIMEOUT_SECONDS"]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, err
		}
		cfg.TimeoutSeconds = f
	}
	if v, ok := vars["RETRY"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Retry = n
	}
	if v, ok := vars["MCAST_GROUP"]; ok && v != "" {
		cfg.MulticastGroup = v
	}
	if v, ok := vars["MCAST_REQUEST_PORT"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.RequestPort = n
	}
	if v, ok := vars["MCAST_SYNC_PORT"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.SyncPort = n
	}
	return cfg, nil
}

// LoadFile is a convenience wrapper around Load for a path on disk.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Load(f)
}
