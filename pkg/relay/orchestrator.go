package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinyland-inc/kakehashi/pkg/bus"
	"github.com/tinyland-inc/kakehashi/pkg/detect"
	"github.com/tinyland-inc/kakehashi/pkg/identity"
	"github.com/tinyland-inc/kakehashi/pkg/logger"
	"github.com/tinyland-inc/kakehashi/pkg/memory"
	"github.com/tinyland-inc/kakehashi/pkg/translate"
)

// Orchestrator owns all per-message relay state: the conversation
// buffers, the forward identity map, and the live suggestion prompts.
// It is driven by a single event consumer, so handlers never race on
// the same channel.
type Orchestrator struct {
	router  *Router
	engine  TranslationEngine
	sender  Sender
	buffers *memory.Buffers
	ids     *identity.Map

	suggester  *Suggester
	comparator Comparator
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithSuggester enables the reply-suggestion prompt flow.
func WithSuggester(s *Suggester) OrchestratorOption {
	return func(o *Orchestrator) { o.suggester = s }
}

// WithComparator enables side-by-side model comparison for translated
// messages.
func WithComparator(c Comparator) OrchestratorOption {
	return func(o *Orchestrator) { o.comparator = c }
}

func NewOrchestrator(router *Router, engine TranslationEngine, sender Sender, buffers *memory.Buffers, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		router:  router,
		engine:  engine,
		sender:  sender,
		buffers: buffers,
		ids:     identity.NewMap(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run consumes events until the bus closes or the context ends.
func (o *Orchestrator) Run(ctx context.Context, events *bus.EventBus) {
	logger.InfoC("relay", "Relay loop started")
	for {
		ev, ok := events.Consume(ctx)
		if !ok {
			logger.InfoC("relay", "Relay loop stopped")
			return
		}

		switch ev.Kind {
		case bus.EventMessageCreated:
			o.HandleMessage(ctx, ev.Message)
		case bus.EventMessageEdited:
			o.HandleEdit(ctx, ev.Message)
		case bus.EventMessageDeleted:
			o.HandleDelete(ctx, ev.Message)
		case bus.EventChannelActivity:
			o.HandleChannelActivity(ctx, ev.Message)
		}
	}
}

// decide maps a route and message body to a translation direction.
// The second return is false when the body is already in the target
// language and passes through unchanged.
func decide(route Route, content string) (translate.Language, bool) {
	japanese := detect.Japanese(content)
	switch route.Kind {
	case RouteSelf:
		if japanese {
			return translate.English, true
		}
		return translate.Japanese, true
	case RouteForward:
		return translate.English, japanese
	default: // RouteReverse
		return translate.Japanese, !japanese
	}
}

// renderBody produces the outbound text body for a message. A message
// with no text body yields an empty body and no translation.
func (o *Orchestrator) renderBody(ctx context.Context, msg Message, route Route) (body string, translated bool, target translate.Language) {
	if msg.Content == "" {
		return "", false, ""
	}

	target, shouldTranslate := decide(route, msg.Content)
	if !shouldTranslate {
		return msg.Content, false, target
	}

	res := o.engine.Translate(ctx, msg.Content, o.buffers.Snapshot(msg.ChannelID), target)
	if !res.Validated {
		logger.WarnCF("relay", "Translation not validated", map[string]any{
			"channel":  msg.ChannelID,
			"message":  msg.MessageID,
			"attempts": res.Attempts,
		})
	}
	return res.Text, true, target
}

// imageURLs filters attachments down to forwardable image links,
// preserving order.
func imageURLs(attachments []Attachment) []string {
	var urls []string
	for _, a := range attachments {
		if strings.HasPrefix(a.ContentType, "image") {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// buildForwardContent assembles the outbound message: a bold mention
// header, the text body if any, then image attachment URLs one per
// line in their original order.
func buildForwardContent(mention, body string, attachments []Attachment) string {
	lines := make([]string, 0, 1+len(attachments))
	if body != "" {
		lines = append(lines, body)
	}
	lines = append(lines, imageURLs(attachments)...)
	return fmt.Sprintf("__**%s**__\n", mention) + strings.Join(lines, "\n")
}

// replyReference finds the counterpart of the message this one replies
// to. A reference is only used when it lands in the same channel the
// relay is about to send to; replying across channels would thread the
// message onto an unrelated conversation.
func (o *Orchestrator) replyReference(msg Message, targetChannel string) *identity.Ref {
	if msg.ReplyToID == "" {
		return nil
	}
	counterpart, ok := o.ids.Lookup(identity.Ref{ChannelID: msg.ChannelID, MessageID: msg.ReplyToID})
	if !ok || counterpart.ChannelID != targetChannel {
		return nil
	}
	return &counterpart
}

// HandleMessage relays one inbound message.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg Message) {
	if msg.Bot {
		return
	}
	route, ok := o.router.Resolve(msg.ChannelID)
	if !ok {
		return
	}

	if o.suggester != nil {
		o.suggester.Retract(ctx, msg.ChannelID)
	}
	if msg.Content != "" {
		o.buffers.Append(msg.ChannelID, msg.AuthorName, msg.Content)
	}

	body, translated, target := o.renderBody(ctx, msg, route)
	if body == "" && len(imageURLs(msg.Attachments)) == 0 {
		return
	}
	content := buildForwardContent(msg.Mention, body, msg.Attachments)

	replyTo := o.replyReference(msg, route.TargetChannel)

	sentID, err := o.sender.Send(ctx, route.TargetChannel, content, replyTo)
	if err != nil {
		logger.ErrorCF("relay", "Failed to send relayed message", map[string]any{
			"source":  msg.ChannelID,
			"target":  route.TargetChannel,
			"message": msg.MessageID,
			"error":   err.Error(),
		})
		return
	}

	o.ids.Link(
		identity.Ref{ChannelID: msg.ChannelID, MessageID: msg.MessageID},
		identity.Ref{ChannelID: route.TargetChannel, MessageID: sentID},
	)

	logger.DebugCF("relay", "Message relayed", map[string]any{
		"source":     msg.ChannelID,
		"target":     route.TargetChannel,
		"translated": translated,
	})

	if o.suggester != nil && msg.Content != "" {
		o.suggester.Offer(ctx, msg.ChannelID)
	}
	if o.comparator != nil && translated {
		o.comparator.Enqueue(msg.ChannelID, msg.MessageID, msg.Content,
			o.buffers.Snapshot(msg.ChannelID), target)
	}
}

// HandleEdit re-renders an edited message and updates the counterpart
// in place. An edit to a message never relayed only refreshes the
// conversation buffer: the buffer is a log of observed utterances, so
// the edited text is appended as a new line.
func (o *Orchestrator) HandleEdit(ctx context.Context, msg Message) {
	if msg.Bot {
		return
	}
	route, ok := o.router.Resolve(msg.ChannelID)
	if !ok {
		return
	}

	if msg.Content != "" {
		o.buffers.Append(msg.ChannelID, msg.AuthorName, msg.Content)
	}

	counterpart, ok := o.ids.Lookup(identity.Ref{ChannelID: msg.ChannelID, MessageID: msg.MessageID})
	if !ok {
		return
	}

	body, _, _ := o.renderBody(ctx, msg, route)
	content := buildForwardContent(msg.Mention, body, msg.Attachments)

	if err := o.sender.Edit(ctx, counterpart.ChannelID, counterpart.MessageID, content); err != nil {
		logger.ErrorCF("relay", "Failed to propagate edit", map[string]any{
			"source":  msg.ChannelID,
			"target":  counterpart.ChannelID,
			"message": msg.MessageID,
			"error":   err.Error(),
		})
	}
}

// HandleDelete removes the counterpart of a deleted original. Both
// identity entries go away either way, but propagation is one-way:
// deleting the relayed copy must never take the author's message with
// it.
func (o *Orchestrator) HandleDelete(ctx context.Context, msg Message) {
	counterpart, source, ok := o.ids.Unlink(identity.Ref{ChannelID: msg.ChannelID, MessageID: msg.MessageID})
	if !ok {
		return
	}
	if !source {
		logger.DebugCF("relay", "Relayed copy deleted, keeping original", map[string]any{
			"channel": msg.ChannelID,
			"message": msg.MessageID,
		})
		return
	}

	if err := o.sender.Delete(ctx, counterpart.ChannelID, counterpart.MessageID); err != nil {
		logger.ErrorCF("relay", "Failed to propagate delete", map[string]any{
			"source":  msg.ChannelID,
			"target":  counterpart.ChannelID,
			"message": msg.MessageID,
			"error":   err.Error(),
		})
	}
}

// HandleChannelActivity retracts any live suggestion prompt in the
// channel. Activity events cover messages the relay does not process,
// bot-authored ones included; the prompt message's own arrival is
// exempted so a prompt does not retract itself.
func (o *Orchestrator) HandleChannelActivity(ctx context.Context, msg Message) {
	if o.suggester != nil {
		o.suggester.HandleActivity(ctx, msg.ChannelID, msg.MessageID)
	}
}

// Suggester exposes the suggestion flow to the platform adapter for
// interaction handling.
func (o *Orchestrator) Suggester() *Suggester {
	return o.suggester
}
