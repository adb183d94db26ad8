// Command local streams synthetic player activity into a running serverlogs
// ingest endpoint so channel provisioning and embeds can be checked by eye.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"

	"github.com/brensch/serverlogs/ingest"
)

var (
	names    = []string{"Steve", "Alex", "Notch", "Herobrine", "Jeb"}
	messages = []string{"hello!", "anyone got iron?", "brb", "gg", "who took my `diamonds`"}
	commands = []string{"spawn", "home", "tpa Alex", "gamemode creative", "msg Steve hi"}
	brands   = []string{"vanilla", "fabric", "forge", "lunarclient"}
)

type player struct {
	ingest.Player
	server string
	online bool
}

func main() {
	// Configure pretty colored logging with tint.
	handler := tint.NewHandler(colorable.NewColorableStdout(), &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
	})
	slog.SetDefault(slog.New(handler))

	addr := flag.String("addr", "ws://localhost:8085/ws", "ingest websocket url")
	token := flag.String("token", os.Getenv("INGEST_TOKEN"), "ingest bearer token")
	servers := flag.String("servers", "lobby,survival,creative", "comma separated backend servers")
	interval := flag.Duration("interval", 2*time.Second, "delay between events")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *addr, header)
	if err != nil {
		slog.Error("failed to connect", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	slog.Info("connected to ingest", "addr", *addr)

	serverList := strings.Split(*servers, ",")
	for _, s := range serverList {
		if err := send(conn, ingest.Activity{Type: ingest.TypeRegister, Server: s}); err != nil {
			slog.Error("failed to register server", "server", s, "error", err)
			os.Exit(1)
		}
	}

	players := make([]*player, len(names))
	for i, name := range names {
		players[i] = &player{Player: ingest.Player{
			Name:    name,
			UUID:    uuid.NewString(),
			IP:      fmt.Sprintf("10.0.0.%d", i+10),
			Version: "1.20.4",
			Brand:   brands[rand.IntN(len(brands))],
		}}
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulator stopped")
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
		}

		a := next(players[rand.IntN(len(players))], serverList)
		if err := send(conn, a); err != nil {
			slog.Error("failed to send activity", "error", err)
			os.Exit(1)
		}
	}
}

// next advances p by one step: offline players join, online players mostly
// chat or run commands and occasionally leave.
func next(p *player, servers []string) ingest.Activity {
	a := ingest.Activity{Player: p.Player}
	if !p.online {
		p.online = true
		p.server = servers[rand.IntN(len(servers))]
		a.Type = ingest.TypeJoin
		a.Server = p.server
		return a
	}

	a.Server = p.server
	switch n := rand.IntN(10); {
	case n < 5:
		a.Type = ingest.TypeChat
		a.Message = messages[rand.IntN(len(messages))]
	case n < 8:
		a.Type = ingest.TypeCommand
		a.Command = commands[rand.IntN(len(commands))]
	default:
		a.Type = ingest.TypeLeave
		p.online = false
	}
	return a
}

func send(conn *websocket.Conn, a ingest.Activity) error {
	if err := conn.WriteJSON(a); err != nil {
		return err
	}
	var ack ingest.Ack
	if err := conn.ReadJSON(&ack); err != nil {
		return err
	}
	slog.Info("sent activity", "type", a.Type, "server", a.Server, "player", a.Player.Name, "status", ack.Status)
	if ack.Error != "" {
		slog.Warn("ingest rejected activity", "error", ack.Error)
	}
	return nil
}
