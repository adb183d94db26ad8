package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testRenderer() *Renderer {
	r := NewRenderer("https://cdn.example/icon.png")
	r.Now = func() time.Time { return time.Date(2025, time.March, 14, 9, 5, 0, 0, time.UTC) }
	r.Flourish = func() string { return "~~" }
	return r
}

func TestRenderChat(t *testing.T) {
	embed := testRenderer().Render(LogEvent{
		Server:   "lobby",
		Category: CategoryChat,
		Body:     "**steve** in lobby\n```diff\n+ Message: hello\n```",
	})

	assert.Equal(t, "💬 **steve** in lobby", embed.Title)
	assert.Equal(t, colorChat, embed.Color)
	assert.Equal(t, "\n✨ 📜 **Log Details:**\n```diff\n+ Message: hello\n```\n~~", embed.Description)
	assert.Equal(t, "🏰 Server: lobby • ⏰ Mar 14 2025 09:05", embed.Footer.Text)
	assert.Equal(t, "https://cdn.example/icon.png", embed.Footer.IconURL)
}

func TestRenderCommand(t *testing.T) {
	embed := testRenderer().Render(LogEvent{
		Server:   "lobby",
		Category: CategoryCommand,
		Body:     "**steve** executed command",
	})

	assert.Equal(t, "⚡ **steve** executed command", embed.Title)
	assert.Equal(t, colorCmd, embed.Color)
	assert.Equal(t, "🔧 Command Executed:\n\n✨ \n~~", embed.Description)
}

func TestRenderJoinLeave(t *testing.T) {
	cases := []struct {
		body  string
		title string
		color int
	}{
		{"**steve** joined\nx", "🚪 **steve** joined", colorJoin},
		{"SERVER JOIN steve\nx", "🚪 SERVER JOIN steve", colorJoin},
		{"**steve** left\nx", "🚶 **steve** left", colorLeave},
		{"**Joined_Guy** left\nx", "🚶 **Joined_Guy** left", colorLeave},
		{"**server join** left\nx", "🚶 **server join** left", colorLeave},
		{"**Joined_Guy** joined\nx", "🚪 **Joined_Guy** joined", colorJoin},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			embed := testRenderer().Render(LogEvent{Server: "lobby", Category: CategoryJoinLeave, Body: tc.body})
			assert.Equal(t, tc.title, embed.Title)
			assert.Equal(t, tc.color, embed.Color)
		})
	}
}

func TestDefaultFlourishIsKnown(t *testing.T) {
	r := NewRenderer("")
	for i := 0; i < 20; i++ {
		assert.Contains(t, flourishes, r.Flourish())
	}
}
