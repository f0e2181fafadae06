// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
	"github.com/Sophic-Technical-Solutions/kismet/hostkit"
	"github.com/Sophic-Technical-Solutions/kismet/ipcregistry"
	"github.com/Sophic-Technical-Solutions/kismet/lib/process"
	"github.com/Sophic-Technical-Solutions/kismet/lib/version"
	"github.com/Sophic-Technical-Solutions/kismet/transport"
)

// shutdownGrace bounds how long a spawned helper gets between the
// SHUTDOWN request / SIGTERM and the hard teardown.
const shutdownGrace = 2 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath   string
		helper       string
		helperArgs   []string
		listen       string
		httpListen   string
		pingInterval time.Duration
		pingTimeout  time.Duration
		logLevel     string
		showVersion  bool
	)

	flagSet := pflag.NewFlagSet("kismet-helper-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML bridge config")
	flagSet.StringVar(&helper, "helper", "", "helper binary to spawn as a child")
	flagSet.StringArrayVar(&helperArgs, "helper-arg", nil, "extra argument passed to the helper (repeatable)")
	flagSet.StringVar(&listen, "listen", "", "TCP address to accept dial-in helpers on (overrides config)")
	flagSet.StringVar(&httpListen, "http-listen", "", "address for the proxy web server (overrides config)")
	flagSet.DurationVar(&pingInterval, "ping-interval", 0, "enable liveness pings at this interval (0 disables)")
	flagSet.DurationVar(&pingTimeout, "ping-timeout", 0, "declare the helper dead after this long without a PONG (default 3x interval)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("kismet-helper-bridge %s\n", version.Info())
		return nil
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg := &hostkit.Config{}
	if configPath != "" {
		cfg, err = hostkit.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}
	if listen == "" {
		listen = cfg.Listen
	}
	if httpListen == "" {
		httpListen = cfg.HTTPListen
	}
	if helper == "" && listen == "" {
		return fmt.Errorf("either --helper or --listen is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timers := hostkit.NewTickerTimerService()
	defer timers.Close()
	events := hostkit.NewMemoryEventBus()
	messageBus := &hostkit.SlogMessageBus{Logger: logger}

	var httpServer *hostkit.NetHTTPServer
	if httpListen != "" {
		httpServer = hostkit.NewNetHTTPServer(httpListen)
		httpServer.Logger = logger
		if err := httpServer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			httpServer.Stop(shutdownCtx)
		}()
	}

	newEndpoint := func() *bridge.Endpoint {
		ep := bridge.NewEndpoint(nil)
		ep.Config = &hostkit.YAMLConfigStore{Config: cfg}
		ep.MessageBus = messageBus
		ep.Timers = timers
		ep.Events = events
		ep.Logger = logger
		if httpServer != nil {
			ep.HTTPServer = httpServer
		}
		if pingInterval > 0 {
			ep.EnableLiveness(pingInterval, pingTimeout)
		}
		return ep
	}

	// Final sweep: no helper child outlives the bridge process.
	defer ipcregistry.Default().SignalAll(syscall.SIGKILL)

	if helper != "" {
		return runSpawned(ctx, newEndpoint(), helper, helperArgs)
	}
	return runAttach(ctx, listen, newEndpoint, logger)
}

// runSpawned launches helper as a child and blocks until it exits or
// the process is signalled, then winds the endpoint down gracefully.
func runSpawned(ctx context.Context, ep *bridge.Endpoint, helper string, args []string) error {
	if err := ep.RunIPC(ctx, helper, args...); err != nil {
		return err
	}

	select {
	case <-ep.Done():
		return nil
	case <-ctx.Done():
	}

	// Ask the helper to exit cleanly, escalate after the grace period.
	ep.RequestShutdown("host shutting down")
	ep.SoftKill()
	select {
	case <-ep.Done():
	case <-time.After(shutdownGrace):
	}
	ep.Close()
	return nil
}

// runAttach serves dial-in helpers on a TCP listener until the process
// is signalled.
func runAttach(ctx context.Context, listen string, newEndpoint func() *bridge.Endpoint, logger *slog.Logger) error {
	listener, err := transport.NewTCPListener(listen)
	if err != nil {
		return err
	}

	server := &bridge.AttachServer{
		Listener:    listener,
		NewEndpoint: newEndpoint,
		Logger:      logger,
	}
	if err := server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	server.Stop()
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})), nil
}
