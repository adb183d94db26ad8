package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brensch/serverlogs/config"
	"github.com/brensch/serverlogs/db"
	"github.com/brensch/serverlogs/discord"
	"github.com/brensch/serverlogs/ingest"
	"github.com/brensch/serverlogs/log"
	"github.com/brensch/serverlogs/relay"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to the standard locations)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Pretty logging until the configured level and file are known.
	slog.SetDefault(slog.New(log.NewPrettyHandler(os.Stdout, log.PrettyHandlerOptions{})))
	slog.Info("serverlogs starting")

	var locations []string
	if *configPath != "" {
		locations = []string{*configPath}
	}
	store, err := config.Load(locations...)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := store.Get()

	logger, logCloser, err := log.Setup(os.Stdout, log.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "path", store.Path(), "guild_id", cfg.Discord.GuildID, "logger", cfg.Discord.Logger)

	registry, dbClient, err := openRegistry(ctx, cfg.Database.Directory)
	if err != nil {
		slog.Error("failed to open server registry", "error", err)
		os.Exit(1)
	}
	for _, name := range cfg.Relay.Servers {
		if err := registry.Add(ctx, name); err != nil {
			slog.Warn("failed to seed server", "server", name, "error", err)
		}
	}

	var bot *discord.Bot
	a := newApp(store, registry, func(guildID string) (relay.Guild, error) {
		g, err := bot.Guild(guildID)
		if err != nil {
			return nil, err
		}
		return g, nil
	})

	schedules := []discord.BotScheduleI{
		discord.NewBotSchedule("reconcile-servers", cfg.Relay.ReconcileCron, a.reconcile),
		discord.NewBotSchedule("reload-config", cfg.Config.ReloadCron, func(ctx context.Context) error {
			return store.Reload()
		}),
	}

	bot, err = discord.NewBot(discord.BotConfig{
		AppID:    cfg.Discord.AppID,
		BotToken: cfg.Discord.BotToken,
		GuildID:  cfg.Discord.GuildID,
	}, a.functions(), schedules)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	slog.Info("bot is now running")

	a.build(cfg)

	if cfg.Config.Watch && store.Path() != "" {
		if err := store.Watch(); err != nil {
			slog.Warn("config file watch disabled", "error", err)
		}
	}

	server := ingest.NewServer(a, store, ingest.Config{
		Token:         cfg.Ingest.Token,
		RatePerSecond: cfg.Ingest.RatePerSecond,
		Burst:         cfg.Ingest.Burst,
	})
	ingestDone := make(chan error, 1)
	go func() {
		ingestDone <- server.Run(ctx, cfg.Ingest.Addr)
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	running := true
	for running {
		select {
		case <-hup:
			a.reload("signal")
		case err := <-ingestDone:
			if err != nil {
				slog.Error("ingest stopped", "error", err)
			}
			ingestDone = nil
			cancel()
			running = false
		case <-ctx.Done():
			running = false
		}
	}

	slog.Info("shutting down")
	if ingestDone != nil {
		if err := <-ingestDone; err != nil {
			slog.Error("ingest shutdown failed", "error", err)
		}
	}
	if err := bot.Close(); err != nil {
		slog.Error("error closing bot", "error", err)
	}
	a.close()
	if err := store.Close(); err != nil {
		slog.Error("error closing config watch", "error", err)
	}
	if dbClient != nil {
		if err := dbClient.Stop(); err != nil {
			slog.Error("failed to stop database", "error", err)
		}
	}
}

// openRegistry returns the DuckDB-backed registry, or an in-memory one when
// no database directory is configured.
func openRegistry(ctx context.Context, dir string) (relay.Registry, *db.Client, error) {
	if dir == "" {
		slog.Warn("database.directory is empty, known servers will not survive a restart")
		return relay.NewMemoryRegistry(), nil, nil
	}

	client, err := db.NewClient(dir)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, nil, errors.Join(err, client.Stop())
	}
	servers, err := db.NewServers(ctx, client)
	if err != nil {
		return nil, nil, errors.Join(err, client.Stop())
	}
	return servers, client, nil
}
