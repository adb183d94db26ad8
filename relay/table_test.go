package relay

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestTableClaim(t *testing.T) {
	tb := newTable()

	assert.True(t, tb.claim("lobby", false))
	assert.False(t, tb.claim("lobby", false))
	assert.False(t, tb.claim("lobby", true), "busy names are never claimable")

	tb.creating("lobby")
	assert.Equal(t, StateCreating, tb.state("lobby"))
	assert.Nil(t, tb.lookup("lobby"))

	set := &ServerChannelSet{Server: "lobby", Chat: &discordgo.Channel{ID: "1"}}
	tb.ready("lobby", set)
	assert.Equal(t, StateReady, tb.state("lobby"))
	assert.Same(t, set, tb.lookup("lobby"))

	assert.False(t, tb.claim("lobby", false))
	assert.True(t, tb.claim("lobby", true))
	assert.Same(t, set, tb.lookup("lobby"), "refresh keeps routing to the old set")

	tb.abort("lobby")
	assert.Equal(t, StateReady, tb.state("lobby"))
	assert.True(t, tb.claim("lobby", true))
}

func TestTableAbortUnknownReleases(t *testing.T) {
	tb := newTable()
	assert.True(t, tb.claim("lobby", false))
	tb.abort("lobby")
	assert.Equal(t, StateUnknown, tb.state("lobby"))
	assert.Empty(t, tb.snapshot())
	assert.True(t, tb.claim("lobby", false))
}

func TestTableClaimIsAtomic(t *testing.T) {
	tb := newTable()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tb.claim("survival", i%2 == 0) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestTableSnapshotSorted(t *testing.T) {
	tb := newTable()
	tb.ready("survival", &ServerChannelSet{Server: "survival"})
	tb.ready("lobby", &ServerChannelSet{Server: "lobby"})
	tb.claim("creative", false)

	snap := tb.snapshot()
	assert.Equal(t, []string{"creative", "lobby", "survival"}, []string{snap[0].Name, snap[1].Name, snap[2].Name})
	assert.True(t, snap[0].Busy)
	assert.Equal(t, StateReady, snap[1].State)
}
