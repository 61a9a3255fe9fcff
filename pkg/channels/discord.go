// Package channels contains platform adapters. The only platform is
// Discord: the adapter turns gateway events into bus events and
// implements the outbound relay, prompt and comparison surfaces.
package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/tinyland-inc/kakehashi/pkg/bus"
	"github.com/tinyland-inc/kakehashi/pkg/compare"
	"github.com/tinyland-inc/kakehashi/pkg/identity"
	"github.com/tinyland-inc/kakehashi/pkg/logger"
	"github.com/tinyland-inc/kakehashi/pkg/memory"
	"github.com/tinyland-inc/kakehashi/pkg/relay"
)

const (
	suggestCustomID = "suggest"
	compareIDPrefix = "cmp"

	historyLimit = 10
)

// noPings suppresses every mention in outbound content.
var noPings = &discordgo.MessageAllowedMentions{
	Parse: []discordgo.AllowedMentionType{},
}

// Discord is the gateway adapter. It publishes inbound events to the
// bus and exposes the outbound capabilities the relay needs.
type Discord struct {
	session *discordgo.Session
	events  *bus.EventBus

	suggester *relay.Suggester
	harness   *compare.Harness

	mu           sync.Mutex
	interactions map[string]*discordgo.Interaction
}

func NewDiscord(token string, events *bus.EventBus) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	d := &Discord{
		session:      session,
		events:       events,
		interactions: make(map[string]*discordgo.Interaction),
	}

	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)
	session.AddHandler(d.onMessageUpdate)
	session.AddHandler(d.onMessageDelete)
	session.AddHandler(d.onInteraction)

	return d, nil
}

// AttachSuggester wires the suggestion flow for button interactions.
// Must be called before Open.
func (d *Discord) AttachSuggester(s *relay.Suggester) {
	d.suggester = s
}

// AttachHarness wires the comparison vote flow. Must be called before
// Open.
func (d *Discord) AttachHarness(h *compare.Harness) {
	d.harness = h
}

func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

// SeedHistory replays the most recent messages of each monitored
// channel into the conversation buffers, oldest first, bot authors
// excluded.
func (d *Discord) SeedHistory(channelIDs []string, buffers *memory.Buffers) {
	for _, channelID := range channelIDs {
		msgs, err := d.session.ChannelMessages(channelID, historyLimit, "", "", "")
		if err != nil {
			logger.WarnCF("discord", "Failed to fetch channel history", map[string]any{
				"channel": channelID,
				"error":   err.Error(),
			})
			continue
		}

		// ChannelMessages returns newest first.
		lines := make([]string, 0, len(msgs))
		for i := len(msgs) - 1; i >= 0; i-- {
			m := msgs[i]
			if m.Author == nil || m.Author.Bot || m.Content == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", displayName(m), m.Content))
		}
		buffers.Seed(channelID, lines)

		logger.DebugCF("discord", "Seeded channel history", map[string]any{
			"channel": channelID,
			"lines":   len(lines),
		})
	}
}

// Send implements relay.Sender.
func (d *Discord) Send(_ context.Context, channelID, content string, replyTo *identity.Ref) (string, error) {
	send := &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: noPings,
	}
	if replyTo != nil {
		send.Reference = &discordgo.MessageReference{
			ChannelID: replyTo.ChannelID,
			MessageID: replyTo.MessageID,
		}
	}

	msg, err := d.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return "", fmt.Errorf("sending to channel %s: %w", channelID, err)
	}
	return msg.ID, nil
}

// Edit implements relay.Sender.
func (d *Discord) Edit(_ context.Context, channelID, messageID, content string) error {
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:         channelID,
		ID:              messageID,
		Content:         &content,
		AllowedMentions: noPings,
	})
	if err != nil {
		return fmt.Errorf("editing message %s: %w", messageID, err)
	}
	return nil
}

// Delete implements relay.Sender.
func (d *Discord) Delete(_ context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	return nil
}

// PostPrompt implements relay.Prompter.
func (d *Discord) PostPrompt(_ context.Context, channelID string) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "返信に困ったら…",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "返信案を見る",
						Style:    discordgo.SecondaryButton,
						CustomID: suggestCustomID,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("posting suggestion prompt: %w", err)
	}
	return msg.ID, nil
}

// RetractPrompt implements relay.Prompter.
func (d *Discord) RetractPrompt(_ context.Context, channelID, messageID string) error {
	return d.session.ChannelMessageDelete(channelID, messageID)
}

// RespondEphemeral implements relay.Prompter. The token refers to a
// deferred interaction stashed by the interaction handler.
func (d *Discord) RespondEphemeral(_ context.Context, token, content string) error {
	d.mu.Lock()
	interaction, ok := d.interactions[token]
	delete(d.interactions, token)
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending interaction for token")
	}

	_, err := d.session.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		return fmt.Errorf("sending ephemeral followup: %w", err)
	}
	return nil
}

// Present implements compare.Presenter: a panel with both outputs and
// four vote buttons, labels blind.
func (d *Discord) Present(_ context.Context, session *compare.Session) error {
	content := fmt.Sprintf(
		"**翻訳比較** どちらの訳が良いですか？\n\n**案A:**\n%s\n\n**案B:**\n%s",
		session.OutputA, session.OutputB)

	voteButton := func(label string, sel compare.Selection, style discordgo.ButtonStyle) discordgo.Button {
		return discordgo.Button{
			Label:    label,
			Style:    style,
			CustomID: fmt.Sprintf("%s:%s:%s", compareIDPrefix, session.ID, sel),
		}
	}

	_, err := d.session.ChannelMessageSendComplex(session.ChannelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: noPings,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					voteButton("案A", compare.SelectionA, discordgo.PrimaryButton),
					voteButton("案B", compare.SelectionB, discordgo.PrimaryButton),
					voteButton("どちらも同じ", compare.SelectionSame, discordgo.SecondaryButton),
					voteButton("わからない", compare.SelectionUnknown, discordgo.SecondaryButton),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("presenting comparison panel: %w", err)
	}
	return nil
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	logger.InfoCF("discord", "Gateway connected", map[string]any{
		"user": r.User.Username,
	})
}

func (d *Discord) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	// Bot traffic is never relayed, but it still moves the
	// conversation on, so it must retract a stale suggestion prompt.
	if m.Author.Bot {
		d.publish(bus.EventChannelActivity, m.Message)
		return
	}
	d.publish(bus.EventMessageCreated, m.Message)
}

func (d *Discord) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	// Embed unfurls arrive as updates without an author.
	if m.Author == nil {
		return
	}
	d.publish(bus.EventMessageEdited, m.Message)
}

func (d *Discord) onMessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	ev := bus.Event{
		Kind: bus.EventMessageDeleted,
		Message: bus.Message{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
		},
	}
	if err := d.events.Publish(context.Background(), ev); err != nil {
		logger.WarnCF("discord", "Failed to publish delete event", map[string]any{
			"error": err.Error(),
		})
	}
}

func (d *Discord) publish(kind bus.EventKind, m *discordgo.Message) {
	msg := bus.Message{
		ChannelID:  m.ChannelID,
		MessageID:  m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m),
		Mention:    m.Author.Mention(),
		Bot:        m.Author.Bot,
		Content:    m.Content,
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, bus.Attachment{
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}
	if m.MessageReference != nil {
		msg.ReplyToID = m.MessageReference.MessageID
	}

	if err := d.events.Publish(context.Background(), bus.Event{Kind: kind, Message: msg}); err != nil {
		logger.WarnCF("discord", "Failed to publish event", map[string]any{
			"channel": m.ChannelID,
			"error":   err.Error(),
		})
	}
}

func (d *Discord) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	switch {
	case customID == suggestCustomID:
		d.handleSuggestInteraction(s, i)
	case strings.HasPrefix(customID, compareIDPrefix+":"):
		d.handleCompareInteraction(s, i)
	}
}

func (d *Discord) handleSuggestInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if d.suggester == nil {
		return
	}

	// Generation takes seconds; defer so the token stays valid.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.WarnCF("discord", "Failed to defer interaction", map[string]any{
			"error": err.Error(),
		})
		return
	}

	d.mu.Lock()
	d.interactions[i.Token] = i.Interaction
	d.mu.Unlock()

	channelID := i.ChannelID
	token := i.Token
	go d.suggester.Answer(context.Background(), channelID, token)
}

func (d *Discord) handleCompareInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if d.harness == nil {
		return
	}

	parts := strings.SplitN(i.MessageComponentData().CustomID, ":", 3)
	if len(parts) != 3 {
		logger.WarnCF("discord", "Malformed vote custom ID", map[string]any{
			"customID": i.MessageComponentData().CustomID,
		})
		return
	}
	sessionID, selection := parts[1], parts[2]

	reply := "このセッションは既に終了しています。"
	if _, ok := d.harness.Vote(sessionID, compare.Selection(selection)); ok {
		reply = "投票を記録しました。ありがとうございます！"
		if i.Message != nil {
			if err := s.ChannelMessageDelete(i.ChannelID, i.Message.ID); err != nil {
				logger.DebugCF("discord", "Failed to remove comparison panel", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.WarnCF("discord", "Failed to acknowledge vote", map[string]any{
			"error": err.Error(),
		})
	}
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
