package main

import (
	"context"
	"fmt"

	"github.com/DeBrosOfficial/loghub/pkg/cmdqueue"
	"github.com/DeBrosOfficial/loghub/pkg/config"
	"github.com/DeBrosOfficial/loghub/pkg/consistency"
	"github.com/DeBrosOfficial/loghub/pkg/gateway"
	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/kv"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"github.com/DeBrosOfficial/loghub/pkg/olric"
	"github.com/DeBrosOfficial/loghub/pkg/retention"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/DeBrosOfficial/loghub/pkg/schedule"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*logging.ColoredLogger, error) {
	return logging.NewLogger(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
		Colors:     cfg.Logging.OutputFile == "",
	})
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *logging.ColoredLogger) (rqlite.Client, error) {
	db, err := rqlite.Open(ctx, rqlite.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	if err := rqlite.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rqlite.NewClient(db), nil
}

func openMarker(cfg *config.Config, db rqlite.Client, clk clock.Clock, logger *logging.ColoredLogger) (kv.Store, error) {
	switch cfg.Marker.Backend {
	case "olric":
		c, err := olric.NewClient(olric.Config{
			Servers: cfg.Marker.OlricServers,
			DMap:    cfg.Marker.OlricDMap,
			Timeout: cfg.Marker.OlricTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return kv.NewOlricStore(c), nil
	case "sql", "":
		return kv.NewSQLStore(db, clk), nil
	default:
		return nil, fmt.Errorf("unsupported marker backend %q", cfg.Marker.Backend)
	}
}

// buildService composes the hub components over an open database.
func buildService(cfg *config.Config, db rqlite.Client, marker kv.Store, clk clock.Clock, logger *logging.ColoredLogger) (*hub.Service, error) {
	logs := logstore.New(db, logger, cfg.Retention.PurgeBatchSize)
	queue := cmdqueue.New(db, logger, cmdqueue.Options{
		ClaimTimeout: cfg.Queue.ClaimTimeout,
		PurgeBatch:   cfg.Retention.PurgeBatchSize,
		Clock:        clk,
	})
	sched := schedule.New(db, logger, schedule.Options{
		DefaultInterval: cfg.Schedule.DefaultUploadInterval,
		Slack:           cfg.Schedule.SlackFactor,
		Clock:           clk,
	})
	sweeper := retention.New(logs, queue, marker, retention.Options{
		TriggerInterval: cfg.Retention.CleanupInterval,
		Retention:       cfg.Retention.DeleteTimeout,
		MaxRounds:       cfg.Retention.MaxPurgeRounds,
	}, logger)
	registry, err := hub.NewRegistry(cfg.Queue.ExtraCommands...)
	if err != nil {
		return nil, err
	}

	return hub.New(hub.Deps{
		Logs:     logs,
		Queue:    queue,
		Schedule: sched,
		Sweeper:  sweeper,
		Filter:   consistency.New(sched, logs, cfg.Download.MaxItems),
		Registry: registry,
		Clock:    clk,
		Logger:   logger,
	}, hub.Options{
		MaxBatch:        cfg.Ingest.MaxBatch,
		SweepOnDownload: cfg.Retention.SweepOnDownload,
	})
}

func gatewayConfig(cfg *config.Config) *gateway.Config {
	gc := &gateway.Config{
		ListenAddr:         cfg.Server.ListenAddr,
		ProbeAPIKey:        cfg.Auth.ProbeAPIKey,
		LogCollectorAPIKey: cfg.Auth.LogCollectorAPIKey,
		CLIAPIKey:          cfg.Auth.CLIAPIKey,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		RequestTimeout:     cfg.Server.RequestTimeout,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
	}
	if cfg.RateLimit.Enabled {
		gc.RateLimitPerMinute = cfg.RateLimit.RequestsPerMinute
		gc.RateLimitBurst = cfg.RateLimit.Burst
		gc.TrustProxyHeaders = cfg.RateLimit.TrustProxyHeaders
	}
	return gc
}

func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.ComponentInfo(logging.ComponentGeneral, "Loaded hub configuration",
		zap.String("version", version),
		zap.String("config", configPath),
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("marker_backend", cfg.Marker.Backend),
	)

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.ComponentError(logging.ComponentDatabase, "failed to open database", zap.Error(err))
		return err
	}
	defer db.Close()

	clk := clock.New()
	marker, err := openMarker(cfg, db, clk, logger)
	if err != nil {
		logger.ComponentError(logging.ComponentCache, "failed to open marker store", zap.Error(err))
		return err
	}
	defer marker.Close()

	svc, err := buildService(cfg, db, marker, clk, logger)
	if err != nil {
		return err
	}

	g, err := gateway.New(logger, gatewayConfig(cfg), svc, gateway.WithClock(clk), gateway.WithPinger(db))
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to initialize gateway", zap.Error(err))
		return err
	}

	if err := g.Start(ctx); err != nil {
		return err
	}
	logger.ComponentInfo(logging.ComponentGeneral, "Hub shutdown complete")
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return db.Close()
}
