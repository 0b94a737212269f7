// Command zrf-manager hosts a rmi.ServiceManager directory: it takes a
// fixed registry of named services and starts each lazily, on its
// first client request, rather than binding every socket at startup.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ugv-zrf/zrf/rmi"
	"github.com/ugv-zrf/zrf/zconfig"
	"github.com/ugv-zrf/zrf/zlog"
)

const methodSum int32 = 0

var configPath string

func main() {
	flset := flag.NewFlagSet("zrf-manager", flag.ExitOnError)
	flset.StringVar(&configPath, "config", "", "path to a JSON config file; defaults are used if omitted")
	zlog.InitFlags(flset)
	flset.Parse(os.Args[1:])

	cfg := zconfig.Default()
	if configPath != "" {
		loaded, err := zconfig.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zrf-manager: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if cfg.Listen == "" {
		cfg.Listen = "tcp://*:5560"
	}

	sm, err := rmi.NewServiceManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zrf-manager: %v\n", err)
		os.Exit(1)
	}

	adder := rmi.NewRegistry()
	rmi.Register(adder, methodSum, func(a, b int32) int32 { return a + b })
	if err := sm.RegisterService("adder", "tcp://*:5557", adder); err != nil {
		fmt.Fprintf(os.Stderr, "zrf-manager: register adder: %v\n", err)
		os.Exit(1)
	}

	// The adder stays unbound until its first lookup; only the directory
	// endpoint opens now.
	if err := sm.Serve(cfg.Listen); err != nil {
		fmt.Fprintf(os.Stderr, "zrf-manager: serve directory: %v\n", err)
		os.Exit(1)
	}
	zlog.Infof("zrf-manager: directory listening on %s", sm.DirectoryAddr())

	go logFlushLoop()
	installSignalHandler(func() { sm.Stop(time.Duration(cfg.ShutdownTimeout)) })

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
