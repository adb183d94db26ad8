package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type sentEmbed struct {
	channelID string
	embed     *discordgo.MessageEmbed
}

// fakeGuild is an in-memory Guild. CreateCategory blocks on gate when set.
type fakeGuild struct {
	mu       sync.Mutex
	channels []*discordgo.Channel
	nextID   int

	categoryCreates int
	creating        int
	channelCreates  []string

	listErr           error
	createCategoryErr error
	createChannelErr  map[string]error

	gate          chan struct{}
	createStarted chan struct{}

	sendErr error
	sent    chan sentEmbed
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		createChannelErr: make(map[string]error),
		createStarted:    make(chan struct{}, 16),
		sent:             make(chan sentEmbed, 16),
	}
}

func (g *fakeGuild) add(typ discordgo.ChannelType, name, parentID string) *discordgo.Channel {
	g.nextID++
	ch := &discordgo.Channel{
		ID:       fmt.Sprintf("%d", g.nextID),
		Name:     name,
		Type:     typ,
		ParentID: parentID,
	}
	g.channels = append(g.channels, ch)
	return ch
}

// seedCategory creates a category with the given text channels directly.
func (g *fakeGuild) seedCategory(name string, children ...string) *discordgo.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	cat := g.add(discordgo.ChannelTypeGuildCategory, name, "")
	for _, child := range children {
		g.add(discordgo.ChannelTypeGuildText, child, cat.ID)
	}
	return cat
}

// remove deletes every channel with the given name, case-insensitively.
func (g *fakeGuild) remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.channels[:0]
	for _, ch := range g.channels {
		if !strings.EqualFold(ch.Name, name) {
			kept = append(kept, ch)
		}
	}
	g.channels = kept
}

func (g *fakeGuild) counts() (int, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.categoryCreates, append([]string(nil), g.channelCreates...)
}

// inFlight is the number of CreateCategory calls that have not returned.
func (g *fakeGuild) inFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creating
}

// categoriesNamed counts categories matching name case-insensitively.
func (g *fakeGuild) categoriesNamed(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, ch := range g.channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, name) {
			n++
		}
	}
	return n
}

func (g *fakeGuild) Channels(ctx context.Context) ([]*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]*discordgo.Channel(nil), g.channels...), nil
}

func (g *fakeGuild) CreateCategory(ctx context.Context, name string) (*discordgo.Channel, error) {
	g.mu.Lock()
	g.categoryCreates++
	g.creating++
	gate := g.gate
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.creating--
		g.mu.Unlock()
	}()

	g.createStarted <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createCategoryErr != nil {
		return nil, g.createCategoryErr
	}
	return g.add(discordgo.ChannelTypeGuildCategory, name, ""), nil
}

func (g *fakeGuild) CreateChannel(ctx context.Context, parentID, name, topic string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.createChannelErr[name]; err != nil {
		return nil, err
	}
	if topic == "" {
		return nil, errors.New("missing topic")
	}
	g.channelCreates = append(g.channelCreates, name)
	return g.add(discordgo.ChannelTypeGuildText, name, parentID), nil
}

func (g *fakeGuild) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	g.sent <- sentEmbed{channelID: channelID, embed: embed}
	return g.sendErr
}

func (g *fakeGuild) IconURL() string {
	return "https://cdn.example/icon.png"
}

// channelID returns the id of the named text channel under category.
func (g *fakeGuild) channelID(category, name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	cat := findCategory(g.channels, category)
	if cat == nil {
		return ""
	}
	if ch := findChannel(textChildren(g.channels, cat.ID), name); ch != nil {
		return ch.ID
	}
	return ""
}
