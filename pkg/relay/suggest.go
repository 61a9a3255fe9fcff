package relay

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/kakehashi/pkg/logger"
	"github.com/tinyland-inc/kakehashi/pkg/memory"
)

// DefaultPromptExpiry is how long a suggestion prompt stays up before
// it is retracted on its own.
const DefaultPromptExpiry = 30 * time.Second

type pendingPrompt struct {
	messageID string
	timer     *time.Timer
}

// Suggester offers a reply-suggestion prompt in a channel after a
// relayed message. At most one prompt is live per channel; a new offer
// or any newer channel activity retracts the previous one.
type Suggester struct {
	prompter  Prompter
	generator ReplyGenerator
	buffers   *memory.Buffers
	expiry    time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPrompt
}

func NewSuggester(prompter Prompter, generator ReplyGenerator, buffers *memory.Buffers, expiry time.Duration) *Suggester {
	if expiry <= 0 {
		expiry = DefaultPromptExpiry
	}
	return &Suggester{
		prompter:  prompter,
		generator: generator,
		buffers:   buffers,
		expiry:    expiry,
		pending:   make(map[string]*pendingPrompt),
	}
}

// Offer posts a fresh prompt in the channel, replacing any live one.
func (s *Suggester) Offer(ctx context.Context, channelID string) {
	s.Retract(ctx, channelID)

	messageID, err := s.prompter.PostPrompt(ctx, channelID)
	if err != nil {
		logger.WarnCF("suggest", "Failed to post prompt", map[string]any{
			"channel": channelID,
			"error":   err.Error(),
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[channelID] = &pendingPrompt{
		messageID: messageID,
		timer: time.AfterFunc(s.expiry, func() {
			s.expire(channelID, messageID)
		}),
	}
}

// HandleActivity retracts the live prompt because a newer message
// arrived in its channel. The prompt's own message is exempt:
// posting the prompt produces an activity event too, and that must
// not tear the prompt straight back down.
func (s *Suggester) HandleActivity(ctx context.Context, channelID, messageID string) {
	s.mu.Lock()
	p, ok := s.pending[channelID]
	if ok && p.messageID == messageID {
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.Retract(ctx, channelID)
}

// Retract removes the live prompt in a channel, if any.
func (s *Suggester) Retract(ctx context.Context, channelID string) {
	s.mu.Lock()
	p, ok := s.pending[channelID]
	if ok {
		p.timer.Stop()
		delete(s.pending, channelID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := s.prompter.RetractPrompt(ctx, channelID, p.messageID); err != nil {
		logger.DebugCF("suggest", "Failed to retract prompt", map[string]any{
			"channel": channelID,
			"error":   err.Error(),
		})
	}
}

// expire is the timer path. It only retracts the prompt it was armed
// for, so a prompt replaced in the meantime is left alone.
func (s *Suggester) expire(channelID, messageID string) {
	s.mu.Lock()
	p, ok := s.pending[channelID]
	if ok && p.messageID == messageID {
		delete(s.pending, channelID)
	} else {
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.prompter.RetractPrompt(ctx, channelID, messageID); err != nil {
		logger.DebugCF("suggest", "Failed to expire prompt", map[string]any{
			"channel": channelID,
			"error":   err.Error(),
		})
	}
}

// Answer generates one reply candidate from the channel's conversation
// log and delivers it privately via the interaction token.
func (s *Suggester) Answer(ctx context.Context, channelID, token string) {
	suggestion, err := s.generator.Suggest(ctx, s.buffers.Snapshot(channelID))
	if err != nil {
		logger.ErrorCF("suggest", "Failed to generate suggestion", map[string]any{
			"channel": channelID,
			"error":   err.Error(),
		})
		return
	}

	if err := s.prompter.RespondEphemeral(ctx, token, suggestion); err != nil {
		logger.WarnCF("suggest", "Failed to deliver suggestion", map[string]any{
			"channel": channelID,
			"error":   err.Error(),
		})
	}
}
