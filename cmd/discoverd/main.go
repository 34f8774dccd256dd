// Command discoverd runs a single service-discovery daemon. Flag parsing
// and env-file loading live entirely in this binary; the core packages
// never see a *pflag.FlagSet (spec §1: "command-line argument parsing...
// not specified").
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jmgarcia/svcdiscover/internal/config"
	"github.com/jmgarcia/svcdiscover/internal/daemon"
	"github.com/jmgarcia/svcdiscover/internal/logging"
	"github.com/jmgarcia/svcdiscover/internal/metrics"
)

var opt struct {
	EnvFile    string
	Service    string
	Port       int
	MetricsAddr string
	Debug      bool
}

func init() {
	pflag.StringVarP(&opt.EnvFile, "env-file", "e", "", "load configuration from this env file (replaces --service and --port)")
	pflag.StringVarP(&opt.Service, "service", "s", "", "service name this daemon answers for")
	pflag.IntVarP(&opt.Port, "port", "p", 0, "optional service port advertised in responses")
	pflag.StringVar(&opt.MetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	pflag.BoolVar(&opt.Debug, "debug", false, "enable debug logging")
}

func main() {
	pflag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "discoverd:", err)
		os.Exit(1)
	}

	log := logging.NewWithLevel("daemon", opt.Debug)
	met := metrics.New(cfg.ServiceName, "daemon")

	if opt.MetricsAddr != "" {
		go serveMetrics(opt.MetricsAddr, log)
	}

	d, err := daemon.New(cfg.ServiceName, daemon.Options{
		MulticastGroup: cfg.MulticastGroup,
		RequestPort:    cfg.RequestPort,
		SyncPort:       cfg.SyncPort,
		Logger:         log,
		Metrics:        met,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "discoverd:", err)
		os.Exit(1)
	}
	if cfg.ServicePort != nil {
		d.SetPort(*cfg.ServicePort)
	}

	log.Infof("starting daemon for service %q", cfg.ServiceName)
	d.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Infof("stopping daemon for service %q", cfg.ServiceName)
	d.Stop()
}

func loadConfig() (config.Config, error) {
	if opt.EnvFile != "" {
		return config.LoadFile(opt.EnvFile)
	}
	if opt.Service == "" {
		return config.Config{}, fmt.Errorf("discoverd: --service is required when --env-file is not set")
	}
	cfg := config.Default(opt.Service)
	if opt.Port != 0 {
		cfg.ServicePort = &opt.Port
	}
	return cfg, nil
}

func serveMetrics(addr string, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped: %v", err)
	}
}
