package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("discord.bot_token is required")

// AppConfig holds all configuration for the application
type AppConfig struct {
	Discord struct {
		AppID    string `koanf:"app_id" yaml:"app_id"`
		BotToken string `koanf:"bot_token" yaml:"bot_token"`
		GuildID  string `koanf:"guild_id" yaml:"guild_id"`
		// Logger gates whether activity events are relayed at all.
		Logger bool `koanf:"logger" yaml:"logger"`
	} `koanf:"discord" yaml:"discord"`

	Database struct {
		// Directory holds the DuckDB file. Empty keeps the server registry in memory.
		Directory string `koanf:"directory" yaml:"directory"`
	} `koanf:"database" yaml:"database"`

	Relay struct {
		ReconcileCron string   `koanf:"reconcile_cron" yaml:"reconcile_cron"`
		Concurrency   int      `koanf:"concurrency" yaml:"concurrency"`
		Servers       []string `koanf:"servers" yaml:"servers"`
	} `koanf:"relay" yaml:"relay"`

	Config struct {
		ReloadCron string `koanf:"reload_cron" yaml:"reload_cron"`
		Watch      bool   `koanf:"watch" yaml:"watch"`
	} `koanf:"config" yaml:"config"`

	Ingest struct {
		Addr          string  `koanf:"addr" yaml:"addr"`
		Token         string  `koanf:"token" yaml:"token"`
		RatePerSecond float64 `koanf:"rate_per_second" yaml:"rate_per_second"`
		Burst         int     `koanf:"burst" yaml:"burst"`
	} `koanf:"ingest" yaml:"ingest"`

	Log struct {
		Level string `koanf:"level" yaml:"level"`
		File  string `koanf:"file" yaml:"file"`
	} `koanf:"log" yaml:"log"`
}

// Defaults are loaded before any file or environment source.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"discord.logger":         false,
		"database.directory":     "./dbfiles",
		"relay.reconcile_cron":   "0 */2 * * * *",
		"relay.concurrency":      4,
		"relay.servers":          []string{},
		"config.reload_cron":     "0 */30 * * * *",
		"config.watch":           true,
		"ingest.addr":            ":8085",
		"ingest.rate_per_second": 5.0,
		"ingest.burst":           20,
		"log.level":              "info",
	}
}

// DefaultLocations are searched in order when no explicit path is given.
var DefaultLocations = []string{
	"/etc/serverlogs/config.yaml",     // Standard system location
	"/config/config.yaml",             // Docker mounted volume location
	filepath.Join(".", "config.yaml"), // Local file in current directory
}

// Store is a reloadable configuration source. Readers always see a complete
// snapshot; Reload swaps it atomically.
type Store struct {
	locations []string

	mu   sync.RWMutex
	k    *koanf.Koanf
	cfg  *AppConfig
	path string

	subsMu sync.Mutex
	subs   []func(*AppConfig)

	watcher *file.File
}

// Load reads configuration from the first existing file in locations
// (DefaultLocations when empty) and the environment.
func Load(locations ...string) (*Store, error) {
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	s := &Store{locations: locations}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every source. On error the previous snapshot is kept.
func (s *Store) Reload() error {
	k, path, err := load(s.locations)
	if err != nil {
		return err
	}

	var cfg AppConfig
	decoderConfig := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			// "lobby,survival" from the environment becomes a list.
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, decoderConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Log configuration details (with sensitive information redacted)
	slog.Debug("configuration loaded",
		"path", path,
		"database_directory", cfg.Database.Directory,
		"guild_id", cfg.Discord.GuildID,
		"logger_enabled", cfg.Discord.Logger,
		"bot_token_present", cfg.Discord.BotToken != "",
		"seed_servers", len(cfg.Relay.Servers))

	if cfg.Discord.BotToken == "" {
		return ErrMissingToken
	}
	if cfg.Discord.GuildID == "" {
		slog.Warn("discord.guild_id is not set, relaying will be disabled")
	}

	s.mu.Lock()
	s.k = k
	s.cfg = &cfg
	s.path = path
	s.mu.Unlock()

	s.notify(&cfg)
	return nil
}

// load merges defaults, the first config file found and APP_ environment variables.
func load(locations []string) (*koanf.Koanf, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load default config: %w", err)
	}

	var loaded string
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if err := k.Load(file.Provider(loc), yaml.Parser()); err != nil {
				return nil, "", fmt.Errorf("error loading config file %s: %w", loc, err)
			}
			loaded = loc
			break
		}
	}
	if loaded == "" {
		slog.Warn("no config file found in any of the expected locations",
			"searched_locations", locations)
	}

	// Environment variables (highest priority). A double underscore separates
	// path segments so keys keep their own underscores:
	// APP_DISCORD__BOT_TOKEN -> discord.bot_token
	callback := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "APP_"))
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := k.Load(env.Provider("APP_", ".", callback), nil); err != nil {
		return nil, "", fmt.Errorf("error loading environment variables: %w", err)
	}

	return k, loaded, nil
}

// Get returns the current configuration snapshot. It must not be modified.
func (s *Store) Get() *AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the config file the current snapshot was read from, if any.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// String looks up a dotted path such as "discord.guild_id".
func (s *Store) String(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.String(path)
}

// Bool looks up a dotted path such as "discord.logger".
func (s *Store) Bool(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Bool(path)
}

// LoggingEnabled reports whether activity events should be relayed.
func (s *Store) LoggingEnabled() bool {
	return s.Get().Discord.Logger
}

// GuildID returns the logging guild id.
func (s *Store) GuildID() string {
	return s.Get().Discord.GuildID
}

// OnReload registers fn to be called with every successfully loaded snapshot.
func (s *Store) OnReload(fn func(*AppConfig)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(cfg *AppConfig) {
	s.subsMu.Lock()
	subs := append(([]func(*AppConfig))(nil), s.subs...)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Watch reloads the store whenever the loaded config file changes.
func (s *Store) Watch() error {
	path := s.Path()
	if path == "" {
		return errors.New("no config file to watch")
	}

	watcher := file.Provider(path)
	err := watcher.Watch(func(event interface{}, err error) {
		if err != nil {
			slog.Warn("config watch error", "path", path, "error", err)
			return
		}
		if err := s.Reload(); err != nil {
			slog.Warn("failed to reload config after change", "path", path, "error", err)
			return
		}
		slog.Info("configuration reloaded", "path", path, "trigger", "file change")
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	return nil
}

// Close stops watching the config file.
func (s *Store) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if watcher == nil {
		return nil
	}
	return watcher.Unwatch()
}
