package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/antigravity-dev/beadsmap/internal/api"
	"github.com/antigravity-dev/beadsmap/internal/config"
	"github.com/antigravity-dev/beadsmap/internal/store"
	"github.com/antigravity-dev/beadsmap/internal/watch"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline API and keep configured sources in sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func watchTargets(cfg *config.Config) []watch.Target {
	targets := make([]watch.Target, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		targets = append(targets, watch.Target{
			Key:   src.Key,
			Label: src.Label,
			Path:  config.ExpandHome(src.Path),
		})
	}
	return targets
}

func (a *app) runServe(parent context.Context) error {
	cfg, cfgPath, err := a.loadConfig()
	if err != nil {
		return err
	}
	dev := a.v.GetBool("dev")
	logger := configureLogger(cfg.General.LogLevel, dev)
	slog.SetDefault(logger)
	logger.Info("beadsmap starting", "config", cfgPath, "state_db", cfg.General.StateDB)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if dbPath := config.ExpandHome(cfg.General.StateDB); dbPath != ":memory:" {
		lock, err := store.AcquireLock(store.LockPath(dbPath))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	mgr := config.NewManager(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	srv := api.NewServer(mgr, st, logger)
	g.Go(func() error { return srv.Start(ctx) })

	importer := watch.StoreImporter{Store: st, Now: a.now}
	if err := a.startSources(ctx, g, cfg, importer, logger); err != nil {
		return err
	}

	g.Go(func() error {
		return reloadOnHangup(ctx, mgr, cfgPath, dev, logger)
	})

	logger.Info("beadsmap running", "bind", cfg.API.Bind, "sources", len(cfg.Sources), "watch", cfg.Watch.On())

	start := time.Now()
	err = g.Wait()
	logger.Info("beadsmap stopped", "shutdown_duration", time.Since(start).String())
	return err
}

// startSources imports every configured source once and, when watching is
// enabled, keeps re-importing them as they change.
func (a *app) startSources(ctx context.Context, g *errgroup.Group, cfg *config.Config, importer watch.Importer, logger *slog.Logger) error {
	if len(cfg.Sources) == 0 {
		return nil
	}
	targets := watchTargets(cfg)

	if !cfg.Watch.On() {
		for _, t := range targets {
			if err := importer.ImportFile(ctx, t.Key, t.Label, t.Path); err != nil {
				logger.Warn("initial import failed", "source", t.Key, "path", t.Path, "error", err)
			}
		}
		return nil
	}

	w, err := watch.New(targets, importer, cfg.Watch.Debounce.Duration, logger)
	if err != nil {
		return err
	}
	if err := w.Sync(ctx); err != nil {
		logger.Warn("initial import incomplete", "error", err)
	}
	g.Go(func() error { return w.Run(ctx) })
	return nil
}

// reloadOnHangup re-reads the config file on SIGHUP. Settings that need a
// restart are rejected and the running config is kept.
func reloadOnHangup(ctx context.Context, mgr *config.Manager, path string, dev bool, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			if path == "" {
				logger.Warn("config reload skipped: running on defaults")
				continue
			}
			if err := mgr.Reload(path); err != nil {
				logger.Error(fmt.Sprintf("config reload failed: %v", err))
				continue
			}
			logger = configureLogger(mgr.Get().General.LogLevel, dev)
			slog.SetDefault(logger)
			logger.Info("config reloaded", "config", path)
		}
	}
}
