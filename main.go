package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/cebot/api"
	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/cebot/logger"
	"github.com/ce-community/cebot/cebot/services"
	"github.com/ce-community/cebot/cebot/utils"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	logger.Setup(slog.LevelInfo)

	slog.Info("Starting CEBot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := cebot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "error"), slog.Any("error", err))
		os.Exit(-1)
	}
	logger.Setup(cfg.Log.Level)
	slog.Info("Configuration loaded successfully", slog.String("type", "sys"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	stores, err := cebot.OpenStores(ctx, *cfg)
	cancel()
	if err != nil {
		slog.Error("Snapshot store connection failed", slog.String("type", "db"), slog.Any("error", err))
		os.Exit(-1)
	}
	defer stores.Close()

	b := cebot.New(*cfg, version, commit)
	b.Stores = stores

	if cfg.Bot.Token != "" {
		if err = b.SetupBot(bot.NewListenerFunc(b.OnReady)); err != nil {
			slog.Error("Failed to setup bot", slog.String("type", "sys"), slog.Any("error", err))
			os.Exit(-1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			b.Client.Close(ctx)
		}()
	} else {
		slog.Warn("No bot token configured, events will not be posted", slog.String("type", "sys"))
	}
	b.SetupEngine(b.Sink())

	scheduler := services.NewPassScheduler(b.Engine, cfg.Reconcile.Interval.Duration)
	if stores.Passes != nil {
		scheduler.WithSaver(stores.Passes)
	}
	if cfg.Spaces.Enabled() {
		archive, err := services.NewArchiveService(cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.Prefix)
		if err != nil {
			slog.Error("Failed to initialize report archive", slog.String("type", "sys"), slog.Any("error", err))
			os.Exit(-1)
		}
		scheduler.WithArchiver(archive)
	}

	status := &api.Server{
		Store:   stores.Snapshots,
		Reports: b.Engine,
		Ping:    stores.Ping,
		Version: version,
	}
	if stores.Passes != nil {
		status.History = stores.Passes
	}
	app := status.App()

	processes := utils.NewBackgroundProcessManager(context.Background())
	processes.StartProcess("pass-scheduler", "runs reconciliation passes", scheduler.Start)
	processes.StartProcess("status-api", "serves "+cfg.API.Listen, func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- app.Listen(cfg.API.Listen) }()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		}
	})

	if b.Client != nil {
		if err = b.Client.OpenGateway(context.TODO()); err != nil {
			slog.Error("Failed to open gateway", slog.String("type", "sys"), slog.Any("error", err))
			os.Exit(-1)
		}
	}

	slog.Info("CEBot is now running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s

	if err := processes.Shutdown(config.ShutdownTimeout); err != nil {
		slog.Warn("Background processes did not stop cleanly", slog.String("type", "sys"), slog.Any("error", err))
	}
	slog.Info("Shutdown complete", slog.String("type", "sys"))
}
