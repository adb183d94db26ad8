package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoGuild is returned when the manager runs without a guild.
	ErrNoGuild = errors.New("no guild configured")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("manager closed")
)

const defaultConcurrency = 4

// Manager owns the mapping from backend server name to its log channels.
// It is safe for concurrent use.
type Manager struct {
	guild    Guild
	registry Registry
	renderer *Renderer
	table    *table

	concurrency int

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed against wg.Add racing wg.Wait in Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithConcurrency bounds how many servers a reconcile pass provisions at once.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithRenderer replaces the default embed renderer.
func WithRenderer(r *Renderer) Option {
	return func(m *Manager) {
		m.renderer = r
	}
}

// New creates a Manager for guild. A nil guild puts the manager in degraded
// mode where every operation is a no-op.
func New(guild Guild, registry Registry, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		guild:       guild,
		registry:    registry,
		table:       newTable(),
		concurrency: defaultConcurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.renderer == nil {
		iconURL := ""
		if guild != nil {
			iconURL = guild.IconURL()
		}
		m.renderer = NewRenderer(iconURL)
	}

	if guild == nil {
		slog.Warn("no logging guild available, provisioning and routing are disabled")
	}
	return m
}

// Start runs the initial discovery pass in the background.
func (m *Manager) Start() {
	m.spawn(func(ctx context.Context) {
		if err := m.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
			slog.Warn("initial reconcile failed", "error", err)
		}
	})
}

// Close cancels in-flight work and waits for it to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// spawn runs fn on its own goroutine unless the manager is closed.
func (m *Manager) spawn(fn func(ctx context.Context)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
	return true
}

// track registers caller-driven work with the manager so Close waits for it.
// The returned context is also cancelled by Close.
func (m *Manager) track(ctx context.Context) (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, ErrClosed
	}
	m.wg.Add(1)
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
		m.wg.Done()
	}, nil
}

// OnServerDiscovered records a newly registered backend server and provisions
// it in the background. It never blocks on Discord.
func (m *Manager) OnServerDiscovered(name string) {
	if name == "" {
		return
	}
	m.spawn(func(ctx context.Context) {
		if m.registry != nil {
			if err := m.registry.Add(ctx, name); err != nil {
				slog.Warn("failed to record server", "server", name, "error", err)
			}
		}
		if err := m.EnsureServer(ctx, name); err != nil && !errors.Is(err, ErrNoGuild) && !errors.Is(err, ErrClosed) {
			slog.Warn("failed to provision server", "server", name, "error", err)
		}
	})
}

// EnsureServer provisions name unless it is already being handled or ready.
// Concurrent callers for the same name result in at most one provisioning
// attempt.
func (m *Manager) EnsureServer(ctx context.Context, name string) error {
	if m.guild == nil {
		return ErrNoGuild
	}
	ctx, done, err := m.track(ctx)
	if err != nil {
		return err
	}
	defer done()
	return m.provision(ctx, name, false)
}

// Reconcile re-runs provisioning for every known server. Ready servers are
// re-resolved by name so deleted channels and categories are recreated.
func (m *Manager) Reconcile(ctx context.Context) error {
	if m.guild == nil {
		return nil
	}
	if m.registry == nil {
		return errors.New("no server registry")
	}
	ctx, done, err := m.track(ctx)
	if err != nil {
		return err
	}
	defer done()

	names, err := m.registry.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list known servers: %w", err)
	}
	slog.Debug("reconciling servers", "count", len(names))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, name := range names {
		g.Go(func() error {
			if err := m.provision(ctx, name, true); err != nil {
				slog.Warn("reconcile failed for server", "server", name, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// provision walks name through Unknown -> Creating -> Ready, or Unknown -> Ready
// when its category already exists. With refresh a Ready name is re-resolved.
func (m *Manager) provision(ctx context.Context, name string, refresh bool) error {
	if m.guild == nil {
		return ErrNoGuild
	}
	if m.isClosed() {
		return ErrClosed
	}
	if !m.table.claim(name, refresh) {
		return nil
	}

	channels, err := m.guild.Channels(ctx)
	if err != nil {
		m.table.abort(name)
		return fmt.Errorf("failed to list guild channels: %w", err)
	}

	category := findCategory(channels, name)
	if category == nil {
		m.table.creating(name)
		category, err = m.guild.CreateCategory(ctx, name)
		if err != nil {
			m.table.release(name)
			return fmt.Errorf("failed to create category %q: %w", name, err)
		}
		slog.Info("created category", "server", name, "id", category.ID)
		channels = nil
	}

	set := m.resolveChannels(ctx, name, category, textChildren(channels, category.ID))
	m.table.ready(name, set)

	if !set.complete() {
		slog.Warn("server partially provisioned", "server", name, "channels", set.String())
	} else if !refresh {
		slog.Info("server channels ready", "server", name, "channels", set.String())
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// State reports the provisioning state of name.
func (m *Manager) State(name string) State {
	return m.table.state(name)
}

// Snapshot lists every tracked server sorted by name.
func (m *Manager) Snapshot() []ServerStatus {
	return m.table.snapshot()
}

// Degraded reports whether the manager is running without a guild.
func (m *Manager) Degraded() bool {
	return m.guild == nil
}
