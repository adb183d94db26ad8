package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/serverlogs/relay"
)

const steveUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func steve() Player {
	return Player{Name: "Steve", UUID: steveUUID, IP: "10.0.0.7", Version: "1.20.4", Brand: "fabric"}
}

func TestFormatJoin(t *testing.T) {
	f := NewFormatter()
	ev, err := f.Format(Activity{Type: TypeJoin, Server: "lobby", Player: steve()})
	require.NoError(t, err)

	assert.Equal(t, "lobby", ev.Server)
	assert.Equal(t, relay.CategoryJoinLeave, ev.Category)
	assert.Equal(t, "**Steve** joined\n```diff\n"+
		"+ UUID: "+steveUUID+"\n"+
		"+ IP: 10.0.0.7\n"+
		"+ Client: Version: 1.20.4, Brand: FABRIC\n"+
		"```", ev.Body)
}

func TestFormatLeaveReportsTimeConnected(t *testing.T) {
	f := NewFormatter()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	_, err := f.Format(Activity{Type: TypeJoin, Server: "lobby", Player: steve()})
	require.NoError(t, err)

	now = now.Add(1*time.Hour + 2*time.Minute + 3*time.Second)
	ev, err := f.Format(Activity{Type: TypeLeave, Server: "survival", Player: steve()})
	require.NoError(t, err)
	assert.Contains(t, ev.Body, "**Steve** left\n")
	assert.Contains(t, ev.Body, "+ Time Connected: 1h 2m 3s\n")
	assert.Contains(t, ev.Body, "+ Last Server: survival\n")

	// The join time is forgotten once the player leaves.
	ev, err = f.Format(Activity{Type: TypeLeave, Server: "survival", Player: steve()})
	require.NoError(t, err)
	assert.Contains(t, ev.Body, "+ Time Connected: 0h 0m 0s\n")
}

func TestFormatChatEscapesBackticks(t *testing.T) {
	f := NewFormatter()
	ev, err := f.Format(Activity{
		Type:    TypeChat,
		Server:  "lobby",
		Player:  Player{Name: "Alex", UUID: steveUUID},
		Message: "look ```here``` and `there`",
	})
	require.NoError(t, err)

	assert.Equal(t, relay.CategoryChat, ev.Category)
	assert.Contains(t, ev.Body, "**Alex** in lobby\n```diff\n")
	assert.Contains(t, ev.Body, "+ Message: look '''here''' and 'there'\n")
	assert.Contains(t, ev.Body, "+ IP: Unknown\n")
	assert.Contains(t, ev.Body, "+ Client: Version: Unknown, Brand: UNKNOWN\n")
}

func TestFormatCommand(t *testing.T) {
	f := NewFormatter()
	ev, err := f.Format(Activity{Type: TypeCommand, Server: "lobby", Player: steve(), Command: "/gamemode creative"})
	require.NoError(t, err)

	assert.Equal(t, relay.CategoryCommand, ev.Category)
	assert.Contains(t, ev.Body, "**Steve** executed command\n")
	assert.Contains(t, ev.Body, "+ Command: /gamemode creative\n+ Server: lobby\n")
}

func TestFormatRejectsInvalid(t *testing.T) {
	f := NewFormatter()
	cases := map[string]Activity{
		"no server":   {Type: TypeChat, Player: steve(), Message: "hi"},
		"bad type":    {Type: "dance", Server: "lobby", Player: steve()},
		"no player":   {Type: TypeJoin, Server: "lobby"},
		"bad uuid":    {Type: TypeJoin, Server: "lobby", Player: Player{Name: "Steve", UUID: "nope"}},
		"empty chat":  {Type: TypeChat, Server: "lobby", Player: steve()},
		"no command":  {Type: TypeCommand, Server: "lobby", Player: steve()},
		"register":    {Type: TypeRegister, Server: "lobby"},
		"blank space": {Type: TypeJoin, Server: "   ", Player: steve()},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Format(a)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}
