package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"digital-twin-engine/analytics"
	"digital-twin-engine/automation"
	"digital-twin-engine/config"
	"digital-twin-engine/events"
	"digital-twin-engine/factory"
	"digital-twin-engine/handlers"
	"digital-twin-engine/simulator"
	"digital-twin-engine/storage"
)

const (
	thermalTwin = "thermal"
	plantTwin   = "plant"
	factoryTwin = "factory"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Log.Level, cfg.Log.Path)

	if err := run(cfg, logger); err != nil {
		logger.Error("engine stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("engine exited")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	logs := make(map[string]storage.Log)
	defer func() {
		for name, l := range logs {
			if err := l.Close(); err != nil {
				logger.Warn("closing log failed", "twin", name, "err", err)
			}
		}
	}()
	for _, name := range []string{thermalTwin, plantTwin, factoryTwin} {
		l, err := openLog(ctx, cfg, name)
		if err != nil {
			return err
		}
		logs[name] = l
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	thermalCfg := analytics.DefaultEngineConfig(thermalTwin)
	thermalCfg.WindowSize = cfg.Thermal.WindowSize
	thermalCfg.MinSamples = cfg.Thermal.MinSamples
	thermalCfg.Contamination = cfg.Thermal.Contamination
	thermal := analytics.NewEngine(
		thermalCfg,
		simulator.NewThermal(simulator.DefaultThermalConfig(), simulator.NewRand(cfg.Thermal.Seed), nil),
		storage.NewJournal(thermalTwin, logs[thermalTwin], logger),
		publisher,
		logger,
	)
	if _, err := thermal.WarmStart(ctx, cfg.Storage.WarmStartRows); err != nil {
		logger.Warn("warm start failed, starting empty", "err", err)
	}

	plant := analytics.NewPlantEngine(
		plantTwin,
		simulator.NewPlant(simulator.DefaultPlantConfig(), simulator.NewRand(cfg.Plant.Seed), nil),
		automation.DefaultPlantThresholds(),
		storage.NewJournal(plantTwin, logs[plantTwin], logger),
		publisher,
		logger,
	)

	factoryCfg := factory.DefaultConfig()
	factoryCfg.Name = factoryTwin
	factoryCfg.Speed = cfg.Factory.Speed
	factoryCfg.EnergyLimit = cfg.Factory.EnergyLimit
	line := factory.NewRegistry(
		factoryCfg,
		simulator.NewRand(cfg.Factory.Seed),
		nil,
		storage.NewJournal(factoryTwin, logs[factoryTwin], logger),
		publisher,
		logger,
	)

	srv := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        handlers.NewRouter(thermal, plant, line),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		thermal.Run(gctx, cfg.Thermal.Period)
		return nil
	})
	g.Go(func() error {
		plant.Run(gctx, cfg.Plant.Period)
		return nil
	})
	g.Go(func() error {
		line.Run(gctx, cfg.Factory.Period)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openLog(ctx context.Context, cfg config.Config, twin string) (storage.Log, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		l, err := storage.NewSQLiteLog(ctx, filepath.Join(cfg.Storage.Dir, twin+".sqlite3"))
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.BackendRedis:
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		l, err := storage.NewRedisLog(connectCtx, cfg.Storage.RedisAddr, "twin:"+twin)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return storage.NewMemoryLog(), nil
	}
}

func newPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Nop{}
	}
	logger.Info("kafka publisher ready", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}
