// Command zrf-service runs a standalone RMI service exposing one SUM
// method, for exercising rmi.Service/ServiceProxy end to end without a
// ServiceManager directory in front of it.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ugv-zrf/zrf/handshake"
	"github.com/ugv-zrf/zrf/rmi"
	"github.com/ugv-zrf/zrf/zconfig"
	"github.com/ugv-zrf/zrf/zlog"
)

const methodSum int32 = 0

var configPath string

func main() {
	flset := flag.NewFlagSet("zrf-service", flag.ExitOnError)
	flset.StringVar(&configPath, "config", "", "path to a JSON config file; defaults are used if omitted")
	zlog.InitFlags(flset)
	flset.Parse(os.Args[1:])

	cfg := zconfig.Default()
	if configPath != "" {
		loaded, err := zconfig.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zrf-service: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Listen == "" {
		cfg.Listen = "tcp://*:5556"
	}

	reg := rmi.NewRegistry()
	rmi.Register(reg, methodSum, func(a, b int32) int32 {
		zlog.Infof("zrf-service: SUM(%d, %d)", a, b)
		return a + b
	})

	svc := rmi.NewService(cfg.Listen, reg)
	if err := svc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "zrf-service: start: %v\n", err)
		os.Exit(1)
	}
	zlog.Infof("zrf-service: listening on %s", svc.Addr())

	// Announce-and-wait: tell the configured responder where this
	// service ended up bound, and hold until it acknowledges.
	if cfg.Announce != "" {
		ack, err := handshake.Initiate[string](cfg.Announce, "sum", svc.Addr())
		if err != nil {
			fmt.Fprintf(os.Stderr, "zrf-service: announce to %s: %v\n", cfg.Announce, err)
			svc.Stop(time.Duration(cfg.ShutdownTimeout))
			os.Exit(1)
		}
		zlog.Infof("zrf-service: announce acknowledged: %s", ack)
	}

	go logFlushLoop()
	installSignalHandler(func() { svc.Stop(time.Duration(cfg.ShutdownTimeout)) })

	select {}
}

func logFlushLoop() {
	for {
		time.Sleep(time.Minute)
		zlog.Flush()
	}
}

func installSignalHandler(onExit func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		onExit()
		zlog.Flush()
		os.Exit(0)
	}()
}
