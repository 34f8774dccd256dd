// Command discover performs a single discovery lookup against a running
// daemon and prints the result, for shell scripts and manual testing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/jmgarcia/svcdiscover/internal/client"
	"github.com/jmgarcia/svcdiscover/internal/logging"
)

var opt struct {
	Timeout float64
	Retry   int
	Debug   bool
}

func init() {
	pflag.Float64VarP(&opt.Timeout, "timeout", "t", 5, "per-step timeout in seconds")
	pflag.IntVarP(&opt.Retry, "retry", "r", 0, "request-attempt cap; negative means unbounded")
	pflag.BoolVar(&opt.Debug, "debug", false, "enable debug logging")
}

func main() {
	pflag.Parse()
	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] <service-name>\n\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(2)
	}
	service := pflag.Arg(0)

	log := logging.NewWithLevel("client", opt.Debug)
	c := client.New(client.Options{Logger: log})

	timeout := time.Duration(opt.Timeout * float64(time.Second))
	ip, port := c.GetServiceIPAndPort(service, timeout, opt.Retry)
	if ip == nil {
		fmt.Fprintf(os.Stderr, "discover: %q not found within budget\n", service)
		os.Exit(1)
	}

	if port != nil {
		fmt.Printf("%s:%d\n", ip, *port)
	} else {
		fmt.Println(ip)
	}
}
