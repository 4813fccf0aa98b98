// relaykitd — DHCP relay agent information daemon. It accepts Option 82
// observation events from an external DHCP stack over a UNIX socket, keeps a
// persistent switch/port/device ledger, optionally authorizes clients via
// RADIUS, and serves Prometheus metrics.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaykit/relaykit/internal/authz"
	"github.com/relaykit/relaykit/internal/config"
	"github.com/relaykit/relaykit/internal/feed"
	"github.com/relaykit/relaykit/internal/logging"
	"github.com/relaykit/relaykit/internal/metrics"
	"github.com/relaykit/relaykit/internal/observe"
	"github.com/relaykit/relaykit/internal/resolve"
	"github.com/relaykit/relaykit/pkg/dhcpv4"
)

func main() {
	configPath := flag.String("config", "/etc/relaykit/config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Server.LogLevel, os.Stdout)
	logger.Info("relaykitd starting", "config", *configPath)

	// Encode the configured classless routes once at startup so operators
	// can see (and alert on) the exact option value handed to the DHCP
	// stack.
	if len(cfg.StaticRoutes) > 0 {
		routes := cfg.Routes()
		if len(cfg.Resolver.Servers) > 0 {
			resolver := resolve.New(cfg.Resolver.Servers, cfg.ResolverTimeout(), logger)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			routes, err = resolver.ResolveGateways(ctx, routes)
			cancel()
			if err != nil {
				logger.Error("resolving route gateways", "error", err)
				os.Exit(1)
			}
		}
		encoded, err := dhcpv4.EncodeClasslessRoutes(routes)
		if err != nil {
			metrics.RouteEncodeErrors.Inc()
			logger.Error("encoding classless routes", "error", err)
			os.Exit(1)
		}
		metrics.RoutesEncoded.Inc()
		logger.Info("classless static routes encoded",
			"option", int(dhcpv4.OptionClasslessStaticRoute),
			"routes", len(routes),
			"value", hex.EncodeToString(encoded))
	}

	store, err := observe.Open(cfg.Server.ObservationDB, logger)
	if err != nil {
		logger.Error("opening observation store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	az := authz.NewClient(cfg.RADIUS, logger)
	if cfg.RADIUS.Enabled {
		logger.Info("RADIUS authorization enabled", "server", cfg.RADIUS.Address)
	}

	srv := feed.NewServer(cfg.Server.EventSocket, store, az, logger)
	if err := srv.Start(); err != nil {
		logger.Error("starting feed server", "error", err)
		os.Exit(1)
	}

	metricsSrv := &http.Server{
		Addr:    cfg.Server.MetricsListen,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsListen)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Info("shutting down", "signal", s.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)
	srv.Stop()

	stats := store.Stats()
	logger.Info("relaykitd stopped",
		"switches", stats["switches"],
		"ports", stats["ports"],
		"devices", stats["devices"])
}
