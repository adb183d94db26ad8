package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorError   = 0xFF0000
	ColorSuccess = 0x00FF00
	ColorInfo    = 0x4CAF50
)

// EmbedResponse wraps a single embed as an interaction response. Ephemeral
// responses are only shown to the invoking user.
func EmbedResponse(embed *discordgo.MessageEmbed, ephemeral bool) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func errorResponse(err error) *discordgo.InteractionResponseData {
	return EmbedResponse(&discordgo.MessageEmbed{
		Title:       "Error",
		Description: fmt.Sprintf("```%v```", err),
		Color:       ColorError,
	}, true)
}

// respond answers the interaction, falling back to a follow-up error message
// if the initial response is rejected.
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		return
	}

	slog.Error("failed to respond to interaction", "error", err)
	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: errorResponse(err).Embeds,
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		slog.Error("failed to send follow-up error", "error", err)
	}
}
