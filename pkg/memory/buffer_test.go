package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffersAppendAndSnapshot(t *testing.T) {
	b := NewBuffers(10)

	b.Append("c1", "alice", "hello")
	b.Append("c1", "bob", "hi there")

	assert.Equal(t, "alice: hello\nbob: hi there", b.Snapshot("c1"))
	assert.Equal(t, "", b.Snapshot("c2"), "unknown channel snapshots to empty string")
}

func TestBuffersFIFOEviction(t *testing.T) {
	b := NewBuffers(10)

	for i := 0; i < 25; i++ {
		b.Append("c1", "user", fmt.Sprintf("msg %d", i))
	}

	require.Equal(t, 10, b.Len("c1"), "buffer never exceeds the window")

	snap := b.Snapshot("c1")
	lines := strings.Split(snap, "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "user: msg 15", lines[0], "oldest surviving entry")
	assert.Equal(t, "user: msg 24", lines[9], "newest entry last")
}

func TestBuffersIndependentChannels(t *testing.T) {
	b := NewBuffers(10)

	for i := 0; i < 12; i++ {
		b.Append("a", "u", fmt.Sprintf("a%d", i))
	}
	b.Append("b", "u", "only one")

	assert.Equal(t, 10, b.Len("a"))
	assert.Equal(t, 1, b.Len("b"))
	assert.Equal(t, "u: only one", b.Snapshot("b"))
}

func TestBuffersSeed(t *testing.T) {
	b := NewBuffers(10)

	seed := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		seed = append(seed, fmt.Sprintf("u: h%d", i))
	}
	b.Seed("c1", seed)

	require.Equal(t, 10, b.Len("c1"))
	assert.True(t, strings.HasPrefix(b.Snapshot("c1"), "u: h5"), "seed keeps the most recent window, oldest first")

	// Appends after seeding keep evicting FIFO.
	b.Append("c1", "u", "new")
	assert.Equal(t, 10, b.Len("c1"))
	assert.True(t, strings.HasSuffix(b.Snapshot("c1"), "u: new"))
}

func TestBuffersZeroWindowFallsBack(t *testing.T) {
	b := NewBuffers(0)
	for i := 0; i < 20; i++ {
		b.Append("c", "u", "x")
	}
	assert.Equal(t, DefaultWindow, b.Len("c"))
}
