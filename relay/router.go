package relay

import (
	"context"
	"log/slog"
)

// Route renders ev and sends it to the matching channel of its server.
// Events for servers that are not Ready, or whose target channel is missing,
// are dropped without error. Delivery happens in the background and failures
// are discarded.
func (m *Manager) Route(ev LogEvent) {
	if m.guild == nil {
		return
	}
	set := m.table.lookup(ev.Server)
	if set == nil {
		return
	}
	target := set.channelFor(ev.Category)
	if target == nil {
		return
	}

	embed := m.renderer.Render(ev)
	channelID := target.ID
	m.spawn(func(ctx context.Context) {
		if err := m.guild.SendEmbed(ctx, channelID, embed); err != nil {
			slog.Debug("dropped log embed",
				"server", ev.Server,
				"category", ev.Category.String(),
				"channel", channelID,
				"error", err)
		}
	})
}
