// Package relay provisions one Discord category per backend server and routes
// player activity into the three log channels inside it.
package relay

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Category selects which of a server's log channels an event lands in.
type Category int

const (
	CategoryChat Category = iota
	CategoryCommand
	CategoryJoinLeave
)

func (c Category) String() string {
	switch c {
	case CategoryChat:
		return "chat"
	case CategoryCommand:
		return "command"
	case CategoryJoinLeave:
		return "join_leave"
	default:
		return "unknown"
	}
}

// Names of the channels created inside every server category.
const (
	ChatChannel      = "chat-logs"
	CommandsChannel  = "commands"
	JoinLeaveChannel = "join-leave"
)

// channelTopics are set on channels this service creates.
var channelTopics = map[string]string{
	ChatChannel:      "Player chat logs - Automatically created by serverlogs",
	CommandsChannel:  "Player command logs - Automatically created by serverlogs",
	JoinLeaveChannel: "Player join/leave logs - Automatically created by serverlogs",
}

// LogEvent is a single rendered activity line for one backend server.
type LogEvent struct {
	Server   string
	Category Category
	// Body is markdown. The first line becomes the embed title.
	Body string
}

// ServerChannelSet is the resolved category and log channels for a server.
// A set is never modified after it is stored; reprovisioning replaces it.
// Any channel may be nil when its creation failed.
type ServerChannelSet struct {
	Server    string
	Category  *discordgo.Channel
	Chat      *discordgo.Channel
	Commands  *discordgo.Channel
	JoinLeave *discordgo.Channel
}

// channelFor returns the destination for an event category, or nil.
func (s *ServerChannelSet) channelFor(c Category) *discordgo.Channel {
	switch c {
	case CategoryChat:
		return s.Chat
	case CategoryCommand:
		return s.Commands
	case CategoryJoinLeave:
		return s.JoinLeave
	default:
		return nil
	}
}

// State is the provisioning state of one server name.
type State int

const (
	StateUnknown State = iota
	StateCreating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ServerStatus is a point-in-time view of one tracked server.
type ServerStatus struct {
	Name  string
	State State
	// Busy is true while a lookup, creation or refresh is in flight.
	Busy bool
	Set  *ServerChannelSet
}

// Guild is the set of Discord operations the manager needs against a single
// guild. Category lookup and channel listing are derived from Channels.
type Guild interface {
	// Channels returns every channel in the guild in Discord's enumeration order.
	Channels(ctx context.Context) ([]*discordgo.Channel, error)
	CreateCategory(ctx context.Context, name string) (*discordgo.Channel, error)
	CreateChannel(ctx context.Context, parentID, name, topic string) (*discordgo.Channel, error)
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	IconURL() string
}

// Registry holds the names of every backend server seen so far.
type Registry interface {
	Add(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
}
