// Package memory keeps the per-channel conversation buffers that feed
// translation prompts. Each buffer is an append-only log of observed
// utterances, capped to the most recent lines; edits append rather
// than rewrite history.
package memory

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultWindow is the number of lines retained per channel.
const DefaultWindow = 10

// Buffers holds bounded conversation history keyed by channel ID.
type Buffers struct {
	mu     sync.Mutex
	window int
	lines  map[string][]string
}

// NewBuffers creates a buffer set with the given window size. A window
// of 0 or less falls back to DefaultWindow.
func NewBuffers(window int) *Buffers {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffers{
		window: window,
		lines:  make(map[string][]string),
	}
}

// Append records one utterance as "{displayName}: {content}" and trims
// the channel's buffer to the window, oldest entries evicted first.
func (b *Buffers) Append(channelID, displayName, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := append(b.lines[channelID], fmt.Sprintf("%s: %s", displayName, content))
	if len(lines) > b.window {
		lines = lines[len(lines)-b.window:]
	}
	b.lines[channelID] = lines
}

// Seed replaces a channel's buffer with pre-formatted lines, oldest
// first, trimmed to the window. Used at startup to replay recent
// history so the first translation already has context.
func (b *Buffers) Seed(channelID string, lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(lines) > b.window {
		lines = lines[len(lines)-b.window:]
	}
	b.lines[channelID] = append([]string(nil), lines...)
}

// Snapshot returns the channel's buffer joined with newlines for prompt
// injection, or "" when the channel has no history.
func (b *Buffers) Snapshot(channelID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.Join(b.lines[channelID], "\n")
}

// Len returns the number of retained lines for a channel.
func (b *Buffers) Len(channelID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.lines[channelID])
}
