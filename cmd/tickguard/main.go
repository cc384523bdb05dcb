// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tickguard/internal/api"
	"github.com/tomtom215/tickguard/internal/config"
	"github.com/tomtom215/tickguard/internal/detection"
	"github.com/tomtom215/tickguard/internal/eventprocessor"
	"github.com/tomtom215/tickguard/internal/ingest"
	"github.com/tomtom215/tickguard/internal/logging"
	"github.com/tomtom215/tickguard/internal/notify"
	"github.com/tomtom215/tickguard/internal/store"
	"github.com/tomtom215/tickguard/internal/supervisor"
	"github.com/tomtom215/tickguard/internal/supervisor/services"
	"github.com/tomtom215/tickguard/internal/tick"
	ws "github.com/tomtom215/tickguard/internal/websocket"
)

func main() {
	cfgStore, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg := cfgStore.Config()

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("config_file", cfgStore.Path()).
		Str("ingest_source", cfg.Ingest.Source).
		Dur("tick_interval", cfg.Tick.Interval).
		Msg("Starting Tickguard")

	if err := run(cfgStore); err != nil {
		logging.Fatal().Err(err).Msg("Tickguard stopped with error")
	}
	logging.Info().Msg("Tickguard stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfgStore *config.Store) error {
	cfg := cfgStore.Config()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Transport

	transport, err := ingest.NewTransport(cfg.Ingest)
	if err != nil {
		return fmt.Errorf("create ingest transport: %w", err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest transport")
		}
	}()

	// Detection

	clock := tick.New(cfg.Tick.Interval)
	manager := detection.NewManager(detection.ManagerConfig{
		Clock:                clock,
		Config:               cfgStore,
		Sender:               ingest.NewSender(transport.Publisher, cfg.Ingest.OutboundTopic),
		MalformedIsViolation: cfg.Detection.MalformedIsViolation,
		TombstoneTTL:         cfg.Detection.TombstoneTTL,
		TombstoneCapacity:    cfg.Detection.TombstoneCapacity,
	})
	bus := manager.Bus()
	ingest.NewAnnouncer(transport.Publisher, cfg.Ingest.EnforcementTopic).Subscribe(bus)

	// History

	history, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing history store")
		}
	}()
	queueCfg := eventprocessor.DefaultQueueConfig()
	if cfg.Notify.Buffer > 0 {
		queueCfg.Buffer = cfg.Notify.Buffer
	}
	recorder, err := store.NewRecorder(history, queueCfg)
	if err != nil {
		return fmt.Errorf("create history recorder: %w", err)
	}
	recorder.Subscribe(bus)

	// Notifications

	dispatcher, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return fmt.Errorf("create notify dispatcher: %w", err)
	}
	if names := dispatcher.Notifiers(); len(names) > 0 {
		dispatcher.Subscribe(bus)
		tree.AddMessagingService(services.NewRunnerService("notify", dispatcher))
		logging.Info().Strs("notifiers", names).Msg("Notifiers enabled")
	}

	// Live feed and API

	hub := ws.NewHub()
	hub.Subscribe(bus)

	tree.AddDataService(services.NewRunnerService("tick-clock", clock))
	tree.AddDataService(services.NewRunnerService("tombstone-sweeper", manager))
	tree.AddDataService(services.NewRunnerService("history-recorder", recorder))
	tree.AddMessagingService(services.NewRunnerService("ingest", ingest.NewService(cfg.Ingest, manager, transport)))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	if cfg.Server.Enabled {
		handler := api.NewHandler(manager, history, hub, cfg.Server)
		router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Server)))
		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router.SetupChi(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	}

	// Detector thresholds are read from cfgStore on every decision, so a
	// reload only needs to apply the settings held outside it.
	if err := cfgStore.Watch(func(next *config.Config, err error) {
		if err != nil {
			logging.Warn().Err(err).Msg("Configuration reload failed, keeping previous values")
			return
		}
		logging.SetLevelString(next.Logging.Level)
		logging.Info().Str("config_file", cfgStore.Path()).Msg("Configuration reloaded")
	}); err != nil {
		logging.Warn().Err(err).Msg("Configuration file watch unavailable")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	err = tree.Serve(ctx)

	// Ingest restarts keep connection state, so live connections are only
	// torn down once the whole tree has stopped.
	manager.CloseAll(context.Background())

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
