// db/client.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver registration
)

// Client is a DuckDB client that stores its database in a given directory.
type Client struct {
	DB  *sql.DB
	dir string
}

// NewClient opens (creating if needed) "duck.db" inside dir.
func NewClient(dir string) (*Client, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		info, err = os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to stat directory after creation: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	dbPath := filepath.Join(dir, "duck.db?threads=4")
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &Client{
		DB:  db,
		dir: dir,
	}, nil
}

// Start ensures that the database connection is available by pinging it.
func (c *Client) Start(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return nil
}

// Stop closes the DuckDB connection.
func (c *Client) Stop() error {
	return c.DB.Close()
}

// Conn returns the underlying database connection for running queries directly.
func (c *Client) Conn() *sql.DB {
	return c.DB
}

// Dir returns the directory holding the database file.
func (c *Client) Dir() string {
	return c.dir
}
