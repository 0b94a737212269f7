// Command zrf-server runs a standalone async request/reply endpoint
// that echoes each request's payload back to its caller.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ugv-zrf/zrf/internal/instanceid"
	"github.com/ugv-zrf/zrf/rpcserver"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zconfig"
	"github.com/ugv-zrf/zrf/zlog"
	"github.com/ugv-zrf/zrf/zmetrics"
)

var configPath string

func main() {
	flset := flag.NewFlagSet("zrf-server", flag.ExitOnError)
	flset.StringVar(&configPath, "config", "", "path to a JSON config file; defaults are used if omitted")
	zlog.InitFlags(flset)
	flset.Parse(os.Args[1:])

	cfg := zconfig.Default()
	if configPath != "" {
		loaded, err := zconfig.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zrf-server: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Listen == "" {
		cfg.Listen = "tcp://*:5555"
	}

	go logFlushLoop()
	installSignalHandler()

	id := instanceid.New()
	opts := []rpcserver.Option{rpcserver.WithWorkers(cfg.Workers)}
	if cfg.Metrics.Enabled {
		opts = append(opts, rpcserver.WithMetrics(zmetrics.NewServerMetrics(prometheus.DefaultRegisterer, id)))
		go serveMetrics(cfg.Metrics.Listen)
	}

	srv := rpcserver.NewServer(cfg.Listen, echoHandler, opts...)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "zrf-server: start: %v\n", err)
		os.Exit(1)
	}
	zlog.Infof("zrf-server: listening on %s with %d workers", srv.Addr(), cfg.Workers)

	select {}
}

func echoHandler(peer xport.PeerID, req wire.ByteArray) wire.ByteArray {
	zlog.Infof("zrf-server: request from %s (%d bytes)", peer, len(req))
	return req
}

func serveMetrics(listen string) {
	if listen == "" {
		listen = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(listen, mux); err != nil {
		zlog.Errorf("zrf-server: metrics listener: %v", err)
	}
}

func logFlushLoop() {
	for {
		time.Sleep(time.Minute)
		zlog.Flush()
	}
}

func installSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		zlog.Flush()
		os.Exit(0)
	}()
}
