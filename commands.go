package main

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/brensch/serverlogs/discord"
	"github.com/brensch/serverlogs/relay"
)

type reloadRequest struct{}

type statusRequest struct {
	Server string `discord:"server,optional,description:Only show this backend server"`
}

func (a *app) functions() []discord.BotFunctionI {
	return []discord.BotFunctionI{
		discord.NewAdminBotFunction("reload", "Reload configuration and rediscover every server", a.handleReload),
		discord.NewBotFunction("status", "Show the provisioning state of backend servers", a.handleStatus),
	}
}

func (a *app) handleReload(reloadRequest) (*discordgo.InteractionResponseData, error) {
	if err := a.reload("command"); err != nil {
		return nil, fmt.Errorf("reload failed: %w", err)
	}
	return discord.EmbedResponse(&discordgo.MessageEmbed{
		Title:       "🔄 Reloaded",
		Description: "Configuration reloaded. Server channels are being rediscovered.",
		Color:       discord.ColorSuccess,
	}, true), nil
}

func (a *app) handleStatus(req statusRequest) (*discordgo.InteractionResponseData, error) {
	m := a.current()
	if m == nil {
		return nil, fmt.Errorf("relay is not running")
	}
	return discord.EmbedResponse(statusEmbed(m.Snapshot(), m.Degraded(), req.Server), true), nil
}

func statusEmbed(statuses []relay.ServerStatus, degraded bool, filter string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🏰 Server log channels",
		Color: discord.ColorInfo,
	}
	if degraded {
		embed.Description = "⚠️ No logging guild is available. Events are being dropped."
		embed.Color = discord.ColorError
	}

	for _, st := range statuses {
		if filter != "" && !strings.EqualFold(st.Name, filter) {
			continue
		}
		value := st.State.String()
		if st.Busy {
			value += " (in progress)"
		}
		if st.Set != nil {
			value += "\n" + channelMentions(st.Set)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: st.Name, Value: value})
	}

	if len(embed.Fields) == 0 {
		if filter != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: filter, Value: relay.StateUnknown.String()})
		} else if embed.Description == "" {
			embed.Description = "No servers discovered yet."
		}
	}
	return embed
}

func channelMentions(set *relay.ServerChannelSet) string {
	var parts []string
	for _, ch := range []*discordgo.Channel{set.Chat, set.Commands, set.JoinLeave} {
		if ch != nil {
			parts = append(parts, ch.Mention())
		}
	}
	if len(parts) == 0 {
		return "no channels"
	}
	return strings.Join(parts, " ")
}
