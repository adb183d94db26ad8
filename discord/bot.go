package discord

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Bot encapsulates the discordgo session, configuration, registered functions, and schedules.
type Bot struct {
	session         *discordgo.Session
	config          BotConfig
	functions       []BotFunctionI
	schedules       []BotScheduleI
	scheduleManager *scheduleManager
}

// BotConfig contains configuration for the bot.
type BotConfig struct {
	AppID    string
	BotToken string
	// GuildID limits command registration to a single guild. Empty registers
	// in every guild the bot is in.
	GuildID string
}

// NewBot opens a Discord session, re-registers each command function in the
// target guilds and starts the provided schedules.
func NewBot(cfg BotConfig, functions []BotFunctionI, schedules []BotScheduleI) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		session:   dg,
		config:    cfg,
		functions: functions,
		schedules: schedules,
	}

	dg.AddHandler(bot.onInteractionCreate)

	// Open the websocket connection. State.Guilds is populated once this returns.
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}

	if cfg.AppID == "" && dg.State.User != nil {
		bot.config.AppID = dg.State.User.ID
	}

	guildIDs := []string{cfg.GuildID}
	if cfg.GuildID == "" {
		guildIDs = guildIDs[:0]
		for _, guild := range dg.State.Guilds {
			guildIDs = append(guildIDs, guild.ID)
		}
	}
	for _, guildID := range guildIDs {
		if err := bot.registerCommands(guildID); err != nil {
			dg.Close()
			return nil, err
		}
	}

	if len(schedules) > 0 {
		bot.scheduleManager = newScheduleManager(schedules)
		if err := bot.scheduleManager.start(); err != nil {
			slog.Error("failed to start schedule manager", "error", err)
			dg.Close()
			return nil, err
		}
	}

	var names []string
	for _, fn := range functions {
		names = append(names, fn.GetName())
	}
	slog.Info("bot online", "commands", strings.Join(names, ", "), "schedules", len(schedules))

	return bot, nil
}

// registerCommands deletes every existing command in the guild and registers
// the bot's functions again.
func (b *Bot) registerCommands(guildID string) error {
	existing, err := b.session.ApplicationCommands(b.config.AppID, guildID)
	if err != nil {
		slog.Error("failed to get commands for guild", "guild", guildID, "error", err)
		return nil
	}
	for _, cmd := range existing {
		if err := b.session.ApplicationCommandDelete(b.config.AppID, guildID, cmd.ID); err != nil {
			slog.Error("failed to delete command", "guild", guildID, "command", cmd.Name, "error", err)
		} else {
			slog.Debug("deleted command", "guild", guildID, "command", cmd.Name)
		}
	}

	for _, fn := range b.functions {
		cmd, err := applicationCommand(fn)
		if err != nil {
			return fmt.Errorf("failed to generate command %s: %w", fn.GetName(), err)
		}
		if _, err := b.session.ApplicationCommandCreate(b.config.AppID, guildID, cmd); err != nil {
			return fmt.Errorf("failed to create guild slash command %s in %s: %w", fn.GetName(), guildID, err)
		}
		slog.Debug("registered command", "guild", guildID, "command", fn.GetName())
	}
	return nil
}

// onInteractionCreate routes interactions to the correct BotFunction based on the command name.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	cmdData := i.ApplicationCommandData()
	slog.Debug("received interaction", "command", cmdData.Name)

	fn := b.function(cmdData.Name)
	if fn == nil {
		slog.Warn("received unknown command", "command", cmdData.Name)
		respond(s, i, errorResponse(fmt.Errorf("unknown command: %s", cmdData.Name)))
		return
	}

	respData, err := fn.HandleInteraction(&cmdData)
	if err != nil {
		slog.Error("failed to execute command", "command", fn.GetName(), "error", err)
		respData = errorResponse(err)
	}
	respond(s, i, respData)
}

func (b *Bot) function(name string) BotFunctionI {
	for _, f := range b.functions {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

// Session exposes the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Close gracefully closes the Discord session and stops the schedule manager.
func (b *Bot) Close() error {
	slog.Info("shutting down bot")

	if b.scheduleManager != nil {
		b.scheduleManager.stop()
	}

	return b.session.Close()
}
