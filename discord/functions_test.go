package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRequest struct {
	Server  string `discord:"server,optional,description:Backend server name"`
	Verbose bool   `discord:"verbose,optional,default:true"`
	Limit   int    `discord:"limit,optional,choices:5|Five;10|Ten,default:5"`
}

func TestParseDiscordTag(t *testing.T) {
	name, tags := parseDiscordTag("server, optional ,description:Backend server name")
	assert.Equal(t, "server", name)
	assert.Equal(t, map[string]string{"optional": "true", "description": "Backend server name"}, tags)
}

func TestStructToCommandOptions(t *testing.T) {
	options, err := structToCommandOptions(statusRequest{})
	require.NoError(t, err)
	require.Len(t, options, 3)

	assert.Equal(t, "server", options[0].Name)
	assert.Equal(t, discordgo.ApplicationCommandOptionString, options[0].Type)
	assert.Equal(t, "Backend server name", options[0].Description)
	assert.False(t, options[0].Required)

	assert.Equal(t, discordgo.ApplicationCommandOptionBoolean, options[1].Type)

	assert.Equal(t, discordgo.ApplicationCommandOptionInteger, options[2].Type)
	require.Len(t, options[2].Choices, 2)
	assert.Equal(t, "Ten", options[2].Choices[1].Name)
	assert.Equal(t, "10", options[2].Choices[1].Value)
}

func TestStructToCommandOptionsRejectsNonStruct(t *testing.T) {
	_, err := structToCommandOptions("nope")
	assert.Error(t, err)
}

func TestHandleInteractionDecodesOptions(t *testing.T) {
	var got statusRequest
	fn := NewBotFunction("status", "Show status", func(req statusRequest) (*discordgo.InteractionResponseData, error) {
		got = req
		return &discordgo.InteractionResponseData{Content: "ok"}, nil
	})

	resp, err := fn.HandleInteraction(&discordgo.ApplicationCommandInteractionData{
		Name: "status",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "server", Type: discordgo.ApplicationCommandOptionString, Value: "lobby"},
			{Name: "limit", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, statusRequest{Server: "lobby", Verbose: true, Limit: 10}, got)
}

func TestHandleInteractionPropagatesHandlerError(t *testing.T) {
	fn := NewBotFunction("boom", "", func(struct{}) (*discordgo.InteractionResponseData, error) {
		return nil, errors.New("boom")
	})
	_, err := fn.HandleInteraction(&discordgo.ApplicationCommandInteractionData{Name: "boom"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "Auto-generated command for boom", fn.GetDescription())
}

func TestAdminBotFunctionPermissions(t *testing.T) {
	fn := NewAdminBotFunction("reload", "Reload", func(struct{}) (*discordgo.InteractionResponseData, error) {
		return nil, nil
	})
	cmd, err := applicationCommand(fn)
	require.NoError(t, err)
	require.NotNil(t, cmd.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionAdministrator), *cmd.DefaultMemberPermissions)
	assert.Empty(t, cmd.Options)
}
