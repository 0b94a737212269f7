// Command zrf-client connects to a zrf-server endpoint and sends one
// request per line read from standard input, printing each reply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ugv-zrf/zrf/housekeep"
	"github.com/ugv-zrf/zrf/internal/instanceid"
	"github.com/ugv-zrf/zrf/rpcclient"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/zconfig"
	"github.com/ugv-zrf/zrf/zlog"
	"github.com/ugv-zrf/zrf/zmetrics"
)

var configPath string

func main() {
	flset := flag.NewFlagSet("zrf-client", flag.ExitOnError)
	flset.StringVar(&configPath, "config", "", "path to a JSON config file; defaults are used if omitted")
	zlog.InitFlags(flset)
	flset.Parse(os.Args[1:])

	cfg := zconfig.Default()
	if configPath != "" {
		loaded, err := zconfig.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zrf-client: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Connect == "" {
		cfg.Connect = "tcp://127.0.0.1:5555"
	}

	var opts []rpcclient.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, rpcclient.WithMetrics(zmetrics.NewClientMetrics(prometheus.DefaultRegisterer, instanceid.New())))
	}

	client := rpcclient.NewClient(cfg.Connect, opts...)
	if err := client.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "zrf-client: start: %v\n", err)
		os.Exit(1)
	}
	defer client.Stop(time.Duration(cfg.ShutdownTimeout))

	hk := housekeep.New(nil)
	hk.Run()
	defer hk.Stop()
	hk.Register(housekeep.Job{
		Name:     "log-flush",
		Interval: time.Minute,
		F:        func() time.Duration { zlog.Flush(); return time.Minute },
	})
	if staleAfter := time.Duration(cfg.StaleAfter); staleAfter > 0 {
		hk.Register(housekeep.Job{
			Name:     "waitlist-sweep",
			Interval: staleAfter,
			F: func() time.Duration {
				client.SweepStale(staleAfter)
				return staleAfter
			},
		})
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		reply := client.Send(wire.ByteArray(line))
		fmt.Println(string(reply.Get()))
	}
}
