package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/brensch/serverlogs/config"
	"gopkg.in/yaml.v3"
)

// Writes an example config with every key set to its default.
func main() {
	out := flag.String("out", "./config.example.yaml", "where to write the example config")
	flag.Parse()

	var example config.AppConfig
	example.Discord.BotToken = "YOUR_BOT_TOKEN"
	example.Discord.GuildID = "YOUR_LOGGING_GUILD_ID"
	example.Discord.Logger = true
	example.Database.Directory = "./dbfiles"
	example.Relay.ReconcileCron = "0 */2 * * * *"
	example.Relay.Concurrency = 4
	example.Relay.Servers = []string{"lobby"}
	example.Config.ReloadCron = "0 */30 * * * *"
	example.Config.Watch = true
	example.Ingest.Addr = ":8085"
	example.Ingest.RatePerSecond = 5
	example.Ingest.Burst = 20
	example.Log.Level = "info"

	slog.Info("generating example config", "path", *out)
	confYAML, err := yaml.Marshal(example)
	if err != nil {
		slog.Error("failed to marshal example yaml", "err", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, confYAML, 0644); err != nil {
		slog.Error("failed to write example config", "err", err)
		os.Exit(1)
	}
}
