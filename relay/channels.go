package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// findCategory returns the first category whose name matches name
// case-insensitively. With duplicates the guild's enumeration order decides.
func findCategory(channels []*discordgo.Channel, name string) *discordgo.Channel {
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}

// textChildren returns the text channels whose parent is categoryID.
func textChildren(channels []*discordgo.Channel, categoryID string) []*discordgo.Channel {
	var out []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.ParentID == categoryID {
			out = append(out, ch)
		}
	}
	return out
}

// findChannel is the text channel counterpart of findCategory.
func findChannel(children []*discordgo.Channel, name string) *discordgo.Channel {
	for _, ch := range children {
		if strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}

// resolveChannels finds or creates the three log channels under category.
// A channel that cannot be created is left nil and picked up again on the
// next reconcile.
func (m *Manager) resolveChannels(ctx context.Context, server string, category *discordgo.Channel, children []*discordgo.Channel) *ServerChannelSet {
	set := &ServerChannelSet{Server: server, Category: category}
	set.Chat = m.getOrCreateChannel(ctx, category, children, ChatChannel)
	set.Commands = m.getOrCreateChannel(ctx, category, children, CommandsChannel)
	set.JoinLeave = m.getOrCreateChannel(ctx, category, children, JoinLeaveChannel)
	return set
}

func (m *Manager) getOrCreateChannel(ctx context.Context, category *discordgo.Channel, children []*discordgo.Channel, name string) *discordgo.Channel {
	if ch := findChannel(children, name); ch != nil {
		return ch
	}

	ch, err := m.guild.CreateChannel(ctx, category.ID, name, channelTopics[name])
	if err != nil {
		slog.Warn("failed to create channel",
			"category", category.Name,
			"channel", name,
			"error", err)
		return nil
	}
	slog.Debug("created channel", "category", category.Name, "channel", name, "id", ch.ID)
	return ch
}

// complete reports whether every channel in the set resolved.
func (s *ServerChannelSet) complete() bool {
	return s.Chat != nil && s.Commands != nil && s.JoinLeave != nil
}

func (s *ServerChannelSet) String() string {
	id := func(ch *discordgo.Channel) string {
		if ch == nil {
			return "-"
		}
		return ch.ID
	}
	return fmt.Sprintf("%s[chat=%s commands=%s join-leave=%s]", s.Server, id(s.Chat), id(s.Commands), id(s.JoinLeave))
}
