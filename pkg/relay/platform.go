// Package relay routes messages between paired channels, drives the
// translation pipeline, and mirrors edits and deletes onto the
// counterpart messages it has produced.
package relay

import (
	"context"

	"github.com/tinyland-inc/kakehashi/pkg/bus"
	"github.com/tinyland-inc/kakehashi/pkg/identity"
	"github.com/tinyland-inc/kakehashi/pkg/translate"
)

// Message and Attachment are the platform-neutral event payloads.
type (
	Message    = bus.Message
	Attachment = bus.Attachment
)

// Sender is the outbound platform boundary. Implementations deliver,
// amend and remove messages in a channel.
type Sender interface {
	// Send posts content to a channel, optionally as a reply to an
	// existing message, and returns the new message's ID. Mentions in
	// the content must not ping anyone.
	Send(ctx context.Context, channelID, content string, replyTo *identity.Ref) (string, error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Delete(ctx context.Context, channelID, messageID string) error
}

// Prompter posts and retracts the reply-suggestion prompt, and
// delivers a generated suggestion privately to the user who asked.
type Prompter interface {
	PostPrompt(ctx context.Context, channelID string) (string, error)
	RetractPrompt(ctx context.Context, channelID, messageID string) error
	RespondEphemeral(ctx context.Context, token, content string) error
}

// TranslationEngine is the pipeline capability the orchestrator needs.
type TranslationEngine interface {
	Translate(ctx context.Context, text, conversation string, target translate.Language) translate.Result
}

// ReplyGenerator produces one reply candidate from a conversation log.
type ReplyGenerator interface {
	Suggest(ctx context.Context, conversation string) (string, error)
}

// Comparator accepts translated messages for side-by-side model
// evaluation. Enqueue must never block the relay path.
type Comparator interface {
	Enqueue(channelID, messageID, text, conversation string, target translate.Language)
}
