package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veesix-networks/osdhcpd/internal/admin"
	"github.com/veesix-networks/osdhcpd/internal/server"
	"github.com/veesix-networks/osdhcpd/internal/transport"
	"github.com/veesix-networks/osdhcpd/pkg/component"
	"github.com/veesix-networks/osdhcpd/pkg/config"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
	"github.com/veesix-networks/osdhcpd/pkg/metrics"
	"github.com/veesix-networks/osdhcpd/pkg/store"
	_ "github.com/veesix-networks/osdhcpd/pkg/store/sqlite"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Components)

	mainLog := logger.Component(logger.Main)
	mainLog.Info("Starting osdhcpd", "server_ip", cfg.Server.ServerIP)

	storeFactory, ok := store.Get(cfg.Store.Backend)
	if !ok {
		log.Fatalf("Lease store backend '%s' not found. Available backends: %v",
			cfg.Store.Backend, store.List())
	}
	leaseStore, err := storeFactory(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open lease store '%s': %v", cfg.Store.Backend, err)
	}

	serverCfg, err := server.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build server config: %v", err)
	}

	now := func() int64 { return time.Now().Unix() }
	srv := server.New(serverCfg, now, leaseStore, logger.Component(logger.Server))
	if !srv.IsServing() {
		mainLog.Warn("No managed addresses configured, requests will be dropped")
	}

	m := metrics.New(func() (int, int) {
		stats := srv.Stats()
		return stats.Available, stats.Allocated
	})

	orch := component.NewOrchestrator()
	orch.Register(transport.New(srv, m, transport.Config{
		Listen:    cfg.Server.Listen,
		Interface: cfg.Server.Interface,
	}))
	orch.Register(server.NewSweeper(srv, cfg.Server.SweepInterval, m))
	orch.Register(admin.NewComponent(srv, cfg.Admin.Address))
	if cfg.Metrics.Enabled {
		orch.Register(metrics.NewComponent(m, cfg.Metrics.Address))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	err = config.Watch(ctx, *configPath, mainLog, func(next *config.Config) {
		nextCfg, err := server.FromConfig(next)
		if err != nil {
			mainLog.Warn("Ignoring config change", "error", err)
			return
		}
		srv.UpdateConfig(nextCfg)
		logger.Configure(next.Logging.Format, next.Logging.Level, next.Logging.Components)
	})
	if err != nil {
		mainLog.Warn("Config watcher unavailable", "error", err)
	}

	mainLog.Info("osdhcpd started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down osdhcpd...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}
	if err := leaseStore.Close(); err != nil {
		mainLog.Error("Error closing lease store", "error", err)
	}

	mainLog.Info("osdhcpd stopped")
}
