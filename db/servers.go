package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Servers records every backend server name the relay has seen, so
// reconciliation covers servers discovered before a restart.
type Servers struct {
	client *Client
}

// KnownServer is one row of the known_servers table.
type KnownServer struct {
	Name      string
	FirstSeen time.Time
	LastSeen  time.Time
}

// NewServers creates the known_servers table if it doesn't exist.
func NewServers(ctx context.Context, client *Client) (*Servers, error) {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS known_servers (
		name TEXT PRIMARY KEY,
		first_seen TIMESTAMP NOT NULL,
		last_seen TIMESTAMP NOT NULL
	)
	`
	if _, err := client.Conn().ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create known_servers table: %w", err)
	}

	slog.Debug("known_servers table created or already exists")
	return &Servers{client: client}, nil
}

// Add records name, refreshing last_seen when it is already known.
func (s *Servers) Add(ctx context.Context, name string) error {
	now := time.Now().UTC()
	upsertSQL := `
	INSERT INTO known_servers (name, first_seen, last_seen)
	VALUES (?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET last_seen = excluded.last_seen
	`
	if _, err := s.client.Conn().ExecContext(ctx, upsertSQL, name, now, now); err != nil {
		return fmt.Errorf("failed to record server %s: %w", name, err)
	}
	return nil
}

// Names returns every known server ordered by first sighting.
func (s *Servers) Names(ctx context.Context) ([]string, error) {
	servers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(servers))
	for i, srv := range servers {
		names[i] = srv.Name
	}
	return names, nil
}

// List returns every known server ordered by first sighting.
func (s *Servers) List(ctx context.Context) ([]KnownServer, error) {
	rows, err := s.client.Conn().QueryContext(ctx,
		`SELECT name, first_seen, last_seen FROM known_servers ORDER BY first_seen, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query known servers: %w", err)
	}
	defer rows.Close()

	var out []KnownServer
	for rows.Next() {
		var srv KnownServer
		if err := rows.Scan(&srv.Name, &srv.FirstSeen, &srv.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan known server: %w", err)
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}
