package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// ErrNoGuildID is returned by Bot.Guild when no guild id is configured.
var ErrNoGuildID = errors.New("no guild id configured")

// GuildClient performs channel and message operations against one guild.
type GuildClient struct {
	session *discordgo.Session
	guildID string
	iconURL string
}

// Guild resolves guildID once, from the session state cache when possible.
func (b *Bot) Guild(guildID string) (*GuildClient, error) {
	if guildID == "" {
		return nil, ErrNoGuildID
	}

	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		guild, err = b.session.Guild(guildID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve guild %s: %w", guildID, err)
		}
	}

	slog.Info("resolved logging guild", "guild", guild.ID, "name", guild.Name)
	return &GuildClient{
		session: b.session,
		guildID: guild.ID,
		iconURL: guild.IconURL(""),
	}, nil
}

// ID returns the guild id.
func (g *GuildClient) ID() string {
	return g.guildID
}

// IconURL returns the guild icon, or empty if it has none.
func (g *GuildClient) IconURL() string {
	return g.iconURL
}

// Channels lists every channel in the guild.
func (g *GuildClient) Channels(ctx context.Context) ([]*discordgo.Channel, error) {
	channels, err := g.session.GuildChannels(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve channels for guild %s: %w", g.guildID, err)
	}
	return channels, nil
}

// CreateCategory creates a channel category named name.
func (g *GuildClient) CreateCategory(ctx context.Context, name string) (*discordgo.Channel, error) {
	return g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
}

// CreateChannel creates a text channel under parentID.
func (g *GuildClient) CreateChannel(ctx context.Context, parentID, name, topic string) (*discordgo.Channel, error) {
	return g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    topic,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
}

// SendEmbed posts embed to channelID.
func (g *GuildClient) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}
