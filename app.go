package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/brensch/serverlogs/config"
	"github.com/brensch/serverlogs/relay"
)

// guildResolver turns a guild id into a handle, or fails when the bot cannot
// see that guild.
type guildResolver func(guildID string) (relay.Guild, error)

// app owns the current relay.Manager and swaps it out on reload. It is the
// ingest sink, so events always reach whichever manager is live.
type app struct {
	store    *config.Store
	registry relay.Registry
	resolve  guildResolver

	mu      sync.RWMutex
	manager *relay.Manager
	guildID string
	workers int
	builds  int
}

func newApp(store *config.Store, registry relay.Registry, resolve guildResolver) *app {
	a := &app{
		store:    store,
		registry: registry,
		resolve:  resolve,
	}
	store.OnReload(a.onConfig)
	return a
}

// build creates and starts a manager for cfg and replaces the live one.
func (a *app) build(cfg *config.AppConfig) {
	var guild relay.Guild
	if cfg.Discord.GuildID != "" && a.resolve != nil {
		g, err := a.resolve(cfg.Discord.GuildID)
		if err != nil {
			slog.Warn("failed to resolve logging guild", "guild_id", cfg.Discord.GuildID, "error", err)
		} else {
			guild = g
		}
	}

	next := relay.New(guild, a.registry, relay.WithConcurrency(cfg.Relay.Concurrency))

	a.mu.Lock()
	prev := a.manager
	a.manager = next
	a.guildID = cfg.Discord.GuildID
	a.workers = cfg.Relay.Concurrency
	a.builds++
	a.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	next.Start()
	slog.Info("relay manager started", "guild_id", cfg.Discord.GuildID, "degraded", next.Degraded())
}

// onConfig rebuilds the manager only when a reloaded config changes what it
// was built from.
func (a *app) onConfig(cfg *config.AppConfig) {
	a.mu.RLock()
	stale := a.manager != nil && (cfg.Discord.GuildID != a.guildID || cfg.Relay.Concurrency != a.workers)
	a.mu.RUnlock()
	if stale {
		a.build(cfg)
	}
}

// reload re-reads configuration, tears the manager down and rebuilds it so
// every known server is rediscovered.
func (a *app) reload(trigger string) error {
	a.mu.RLock()
	before := a.builds
	a.mu.RUnlock()

	if err := a.store.Reload(); err != nil {
		slog.Warn("config reload failed, keeping current configuration", "trigger", trigger, "error", err)
		return err
	}

	a.mu.RLock()
	rebuilt := a.builds != before
	a.mu.RUnlock()
	if !rebuilt {
		a.build(a.store.Get())
	}
	slog.Info("configuration reloaded", "trigger", trigger)
	return nil
}

func (a *app) current() *relay.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.manager
}

func (a *app) OnServerDiscovered(name string) {
	if m := a.current(); m != nil {
		m.OnServerDiscovered(name)
	}
}

func (a *app) Route(ev relay.LogEvent) {
	if m := a.current(); m != nil {
		m.Route(ev)
	}
}

func (a *app) Snapshot() []relay.ServerStatus {
	if m := a.current(); m != nil {
		return m.Snapshot()
	}
	return nil
}

func (a *app) reconcile(ctx context.Context) error {
	m := a.current()
	if m == nil {
		return nil
	}
	// A reload can close m underneath us; the new manager reconciles on start.
	if err := m.Reconcile(ctx); err != nil && !errors.Is(err, relay.ErrClosed) {
		return err
	}
	return nil
}

func (a *app) close() {
	a.mu.Lock()
	m := a.manager
	a.manager = nil
	a.mu.Unlock()
	if m != nil {
		m.Close()
	}
}
