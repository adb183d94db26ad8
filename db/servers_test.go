package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServers(t *testing.T, dir string) (*Servers, *Client) {
	t.Helper()
	client, err := NewClient(dir)
	require.NoError(t, err)
	require.NoError(t, client.Start(context.Background()))

	servers, err := NewServers(context.Background(), client)
	require.NoError(t, err)
	return servers, client
}

func TestServersAddIsIdempotent(t *testing.T) {
	servers, client := newTestServers(t, t.TempDir())
	defer client.Stop()

	ctx := context.Background()
	require.NoError(t, servers.Add(ctx, "lobby"))
	require.NoError(t, servers.Add(ctx, "survival"))
	require.NoError(t, servers.Add(ctx, "lobby"))

	names, err := servers.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby", "survival"}, names)

	list, err := servers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].LastSeen.Before(list[0].FirstSeen))
}

func TestServersSurviveReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dbfiles")
	servers, client := newTestServers(t, dir)
	require.NoError(t, servers.Add(context.Background(), "creative"))
	require.NoError(t, client.Stop())

	reopened, client := newTestServers(t, dir)
	defer client.Stop()
	names, err := reopened.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"creative"}, names)
}

func TestNewClientRejectsFile(t *testing.T) {
	dir := t.TempDir()
	_, client := newTestServers(t, dir)
	defer client.Stop()

	_, err := NewClient(filepath.Join(dir, "duck.db"))
	assert.ErrorContains(t, err, "is not a directory")
}
