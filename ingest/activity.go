package ingest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/serverlogs/relay"
)

// ErrInvalid wraps every rejection of a malformed activity.
var ErrInvalid = errors.New("invalid activity")

// Activity types accepted on /events and /ws.
const (
	TypeRegister = "register"
	TypeJoin     = "join"
	TypeLeave    = "leave"
	TypeChat     = "chat"
	TypeCommand  = "command"
)

// Player identifies the player an activity is about.
type Player struct {
	Name    string `json:"name"`
	UUID    string `json:"uuid"`
	IP      string `json:"ip,omitempty"`
	Version string `json:"version,omitempty"`
	Brand   string `json:"brand,omitempty"`
}

// Activity is the envelope posted by a proxy for every player event. A
// register activity only carries Server.
type Activity struct {
	Type    string `json:"type"`
	Server  string `json:"server"`
	Player  Player `json:"player"`
	Message string `json:"message,omitempty"`
	Command string `json:"command,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validate checks the fields required by a.Type and returns the parsed player UUID.
func (a Activity) validate() (uuid.UUID, error) {
	if strings.TrimSpace(a.Server) == "" {
		return uuid.Nil, invalid("server is required")
	}
	switch a.Type {
	case TypeRegister:
		return uuid.Nil, nil
	case TypeJoin, TypeLeave, TypeChat, TypeCommand:
	default:
		return uuid.Nil, invalid("unknown type %q", a.Type)
	}
	if a.Player.Name == "" {
		return uuid.Nil, invalid("player.name is required")
	}
	id, err := uuid.Parse(a.Player.UUID)
	if err != nil {
		return uuid.Nil, invalid("player.uuid: %v", err)
	}
	if a.Type == TypeChat && a.Message == "" {
		return uuid.Nil, invalid("message is required for chat")
	}
	if a.Type == TypeCommand && a.Command == "" {
		return uuid.Nil, invalid("command is required for command")
	}
	return id, nil
}

// Formatter turns activities into relay events. It remembers join times so a
// leave can report how long the player was connected.
type Formatter struct {
	mu    sync.Mutex
	joins map[uuid.UUID]time.Time
	now   func() time.Time
}

func NewFormatter() *Formatter {
	return &Formatter{
		joins: make(map[uuid.UUID]time.Time),
		now:   time.Now,
	}
}

// Format validates a and renders its body. Register activities are rejected
// since they carry nothing to relay.
func (f *Formatter) Format(a Activity) (relay.LogEvent, error) {
	id, err := a.validate()
	if err != nil {
		return relay.LogEvent{}, err
	}

	p := a.Player
	ip := orUnknown(p.IP)
	client := clientString(p)

	switch a.Type {
	case TypeJoin:
		f.mu.Lock()
		f.joins[id] = f.now()
		f.mu.Unlock()
		return relay.LogEvent{
			Server:   a.Server,
			Category: relay.CategoryJoinLeave,
			Body: fmt.Sprintf("**%s** joined\n```diff\n"+
				"+ UUID: %s\n"+
				"+ IP: %s\n"+
				"+ Client: %s\n"+
				"```", p.Name, id, ip, client),
		}, nil

	case TypeLeave:
		now := f.now()
		f.mu.Lock()
		joined, ok := f.joins[id]
		delete(f.joins, id)
		f.mu.Unlock()
		if !ok {
			joined = now
		}
		d := now.Sub(joined)
		return relay.LogEvent{
			Server:   a.Server,
			Category: relay.CategoryJoinLeave,
			Body: fmt.Sprintf("**%s** left\n```diff\n"+
				"+ Time Connected: %dh %dm %ds\n"+
				"+ Last Server: %s\n"+
				"+ UUID: %s\n"+
				"+ IP: %s\n"+
				"+ Client: %s\n"+
				"```", p.Name,
				int(d.Hours())%24, int(d.Minutes())%60, int(d.Seconds())%60,
				a.Server, id, ip, client),
		}, nil

	case TypeChat:
		return relay.LogEvent{
			Server:   a.Server,
			Category: relay.CategoryChat,
			Body: fmt.Sprintf("**%s** in %s\n```diff\n"+
				"+ Message: %s\n"+
				"+ UUID: %s\n"+
				"+ IP: %s\n"+
				"+ Client: %s\n"+
				"```", p.Name, a.Server, escapeBackticks(a.Message), id, ip, client),
		}, nil

	case TypeCommand:
		return relay.LogEvent{
			Server:   a.Server,
			Category: relay.CategoryCommand,
			Body: fmt.Sprintf("**%s** executed command\n```diff\n"+
				"+ Command: /%s\n"+
				"+ Server: %s\n"+
				"+ IP: %s\n"+
				"+ UUID: %s\n"+
				"+ Client: %s\n"+
				"```", p.Name, escapeBackticks(strings.TrimPrefix(a.Command, "/")), a.Server, ip, id, client),
		}, nil
	}
	return relay.LogEvent{}, invalid("%s carries no log line", a.Type)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func clientString(p Player) string {
	return fmt.Sprintf("Version: %s, Brand: %s", orUnknown(p.Version), strings.ToUpper(orUnknown(p.Brand)))
}

// escapeBackticks keeps player text from closing the diff block.
func escapeBackticks(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "```", "'''"), "`", "'")
}
