package relay

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorChat  = 0x0000FF
	colorCmd   = 0xFFC800
	colorJoin  = 0x00FF00
	colorLeave = 0xFF0000

	footerTimeFormat = "Jan 02 2006 15:04"
)

// joinMarkers identify a join in a JoinLeave title. Anything else is a leave.
var joinMarkers = []string{"joined", "server join"}

var flourishes = []string{
	"✧･ﾟ: *✧･ﾟ:* *:･ﾟ✧*:･ﾟ✧･ﾟ:* *:･ﾟ✧*:･ﾟ✧",
	"♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡ ♡",
	"✿｡.:* ☆:**:.｡✿｡.:* ☆:**:.｡✿｡.:* ☆:**:.｡",
	"⋆｡°✩⋆｡˚✩⋆｡°✩⋆｡˚✩⋆｡°✩⋆｡˚✩⋆｡°✩⋆｡˚✩",
	"༺♡༻༺♡༻༺♡༻༺♡༻༺♡༻༺♡༻༺♡༻",
	"✦───✿✿✿───✦───✿✿✿───✦───✿✿✿───✦",
}

// Renderer turns log events into embeds.
type Renderer struct {
	IconURL string
	// Now and Flourish are replaceable for tests.
	Now      func() time.Time
	Flourish func() string
}

// NewRenderer returns a Renderer whose footers carry iconURL.
func NewRenderer(iconURL string) *Renderer {
	return &Renderer{
		IconURL: iconURL,
		Now:     time.Now,
		Flourish: func() string {
			return flourishes[rand.IntN(len(flourishes))]
		},
	}
}

// Render builds the embed for ev. The first line of the body is the title and
// the rest is the description.
func (r *Renderer) Render(ev LogEvent) *discordgo.MessageEmbed {
	title, details, _ := strings.Cut(ev.Body, "\n")
	description := "\n✨ " + strings.Replace(details, "```diff\n", "📜 **Log Details:**\n```diff\n", 1) +
		"\n" + r.Flourish()

	embed := &discordgo.MessageEmbed{}
	switch ev.Category {
	case CategoryChat:
		embed.Title = "💬 " + title
		embed.Color = colorChat
		embed.Description = description
	case CategoryCommand:
		embed.Title = "⚡ " + title
		embed.Color = colorCmd
		embed.Description = "🔧 Command Executed:\n" + description
	case CategoryJoinLeave:
		if IsJoin(title) {
			embed.Title = "🚪 " + title
			embed.Color = colorJoin
		} else {
			embed.Title = "🚶 " + title
			embed.Color = colorLeave
		}
		embed.Description = description
	}

	embed.Footer = &discordgo.MessageEmbedFooter{
		Text:    "🏰 Server: " + ev.Server + " • ⏰ " + r.Now().Format(footerTimeFormat),
		IconURL: r.IconURL,
	}
	return embed
}

// IsJoin reports whether a join/leave title describes a join. A leading
// bolded player name is ignored so names like "Joined_Guy" don't match.
func IsJoin(title string) bool {
	if rest, ok := strings.CutPrefix(title, "**"); ok {
		if _, after, found := strings.Cut(rest, "**"); found {
			title = after
		}
	}
	lower := strings.ToLower(title)
	for _, marker := range joinMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
