package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleConfig = `
discord:
  bot_token: abc123
  guild_id: "1122334455"
  logger: true
relay:
  servers:
    - lobby
    - survival
ingest:
  burst: 7
`

func TestLoadFileWithDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	store, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), path)
	require.NoError(t, err)

	cfg := store.Get()
	assert.Equal(t, path, store.Path())
	assert.Equal(t, "abc123", cfg.Discord.BotToken)
	assert.Equal(t, "1122334455", store.GuildID())
	assert.True(t, store.LoggingEnabled())
	assert.Equal(t, []string{"lobby", "survival"}, cfg.Relay.Servers)
	assert.Equal(t, 7, cfg.Ingest.Burst)

	// Defaults fill everything the file leaves out.
	assert.Equal(t, "0 */2 * * * *", cfg.Relay.ReconcileCron)
	assert.Equal(t, 4, cfg.Relay.Concurrency)
	assert.Equal(t, ":8085", cfg.Ingest.Addr)
	assert.InDelta(t, 5.0, cfg.Ingest.RatePerSecond, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestDottedPathLookup(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)
	store, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1122334455", store.String("discord.guild_id"))
	assert.True(t, store.Bool("discord.logger"))
	assert.Equal(t, "", store.String("discord.nothing_here"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)
	t.Setenv("APP_DISCORD__GUILD_ID", "999")
	t.Setenv("APP_DISCORD__LOGGER", "false")
	t.Setenv("APP_RELAY__SERVERS", "hub,creative")
	t.Setenv("APP_INGEST__RATE_PER_SECOND", "2.5")

	store, err := Load(path)
	require.NoError(t, err)

	cfg := store.Get()
	assert.Equal(t, "999", cfg.Discord.GuildID)
	assert.False(t, cfg.Discord.Logger)
	assert.Equal(t, []string{"hub", "creative"}, cfg.Relay.Servers)
	assert.InDelta(t, 2.5, cfg.Ingest.RatePerSecond, 0.001)
}

func TestMissingTokenIsFatal(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "discord:\n  guild_id: \"1\"\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestReloadKeepsPreviousSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)
	store, err := Load(path)
	require.NoError(t, err)

	var reloaded []*AppConfig
	store.OnReload(func(cfg *AppConfig) { reloaded = append(reloaded, cfg) })

	writeConfig(t, dir, "discord:\n  bot_token: abc123\n  guild_id: \"42\"\n")
	require.NoError(t, store.Reload())
	assert.Equal(t, "42", store.GuildID())
	assert.False(t, store.LoggingEnabled())
	require.Len(t, reloaded, 1)

	writeConfig(t, dir, "discord:\n  guild_id: \"43\"\n")
	assert.ErrorIs(t, store.Reload(), ErrMissingToken)
	assert.Equal(t, "42", store.GuildID())
	assert.Len(t, reloaded, 1)
}

func TestWatchRequiresFile(t *testing.T) {
	t.Setenv("APP_DISCORD__BOT_TOKEN", "from-env")
	store, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", store.Get().Discord.BotToken)
	assert.Error(t, store.Watch())
	assert.NoError(t, store.Close())
}
