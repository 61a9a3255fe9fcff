package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/kakehashi/pkg/config"
	"github.com/tinyland-inc/kakehashi/pkg/identity"
	"github.com/tinyland-inc/kakehashi/pkg/memory"
	"github.com/tinyland-inc/kakehashi/pkg/translate"
)

type sentMessage struct {
	ChannelID string
	Content   string
	ReplyTo   *identity.Ref
}

type editedMessage struct {
	ChannelID string
	MessageID string
	Content   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []editedMessage
	deletes []identity.Ref
	nextID  int
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, channelID, content string, replyTo *identity.Ref) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content, ReplyTo: replyTo})
	return fmt.Sprintf("out-%d", f.nextID), nil
}

func (f *fakeSender) Edit(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{ChannelID: channelID, MessageID: messageID, Content: content})
	return nil
}

func (f *fakeSender) Delete(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, identity.Ref{ChannelID: channelID, MessageID: messageID})
	return nil
}

// fakeEngine marks translated text instead of translating it.
type fakeEngine struct {
	mu    sync.Mutex
	calls []translate.Language
}

func (f *fakeEngine) Translate(_ context.Context, text, _ string, target translate.Language) translate.Result {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.mu.Unlock()
	return translate.Result{
		Text:      fmt.Sprintf("[%s]%s", target, text),
		Validated: true,
		Attempts:  1,
	}
}

func newTestOrchestrator(t *testing.T, pairings []config.Pairing, opts ...OrchestratorOption) (*Orchestrator, *fakeSender, *fakeEngine) {
	t.Helper()
	router, err := NewRouter(pairings)
	require.NoError(t, err)
	sender := &fakeSender{}
	engine := &fakeEngine{}
	o := NewOrchestrator(router, engine, sender, memory.NewBuffers(memory.DefaultWindow), opts...)
	return o, sender, engine
}

func jaEnPairings() []config.Pairing {
	return []config.Pairing{{Source: "ja-1", Target: "en-1"}}
}

func TestHandleMessageForwardTranslates(t *testing.T) {
	o, sender, engine := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID:  "ja-1",
		MessageID:  "m1",
		AuthorName: "taro",
		Mention:    "<@100>",
		Content:    "おはよう",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "en-1", sender.sent[0].ChannelID)
	assert.Equal(t, "__**<@100>**__\n[en]おはよう", sender.sent[0].Content)
	assert.Equal(t, []translate.Language{translate.English}, engine.calls)
}

func TestHandleMessageForwardPassthrough(t *testing.T) {
	// English text in the Japanese-side channel is forwarded as-is.
	o, sender, engine := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@100>",
		AuthorName: "taro", Content: "good morning",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "__**<@100>**__\ngood morning", sender.sent[0].Content)
	assert.Empty(t, engine.calls)
}

func TestHandleMessageReverseTranslates(t *testing.T) {
	o, sender, engine := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "en-1", MessageID: "m1", Mention: "<@200>",
		AuthorName: "alice", Content: "hello",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ja-1", sender.sent[0].ChannelID)
	assert.Equal(t, "__**<@200>**__\n[ja]hello", sender.sent[0].Content)
	assert.Equal(t, []translate.Language{translate.Japanese}, engine.calls)
}

func TestHandleMessageSelfPairTranslatesInPlace(t *testing.T) {
	o, sender, engine := newTestOrchestrator(t, []config.Pairing{{Source: "mixed", Target: "mixed"}})

	o.HandleMessage(context.Background(), Message{
		ChannelID: "mixed", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "こんにちは",
	})
	o.HandleMessage(context.Background(), Message{
		ChannelID: "mixed", MessageID: "m2", Mention: "<@2>",
		AuthorName: "alice", Content: "hello",
	})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "mixed", sender.sent[0].ChannelID)
	assert.Equal(t, "__**<@1>**__\n[en]こんにちは", sender.sent[0].Content)
	assert.Equal(t, "__**<@2>**__\n[ja]hello", sender.sent[1].Content)
	assert.Equal(t, []translate.Language{translate.English, translate.Japanese}, engine.calls)
}

func TestHandleMessageIgnoresBotsAndUnmonitored(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "m1", Bot: true, Content: "こんにちは",
	})
	o.HandleMessage(context.Background(), Message{
		ChannelID: "other", MessageID: "m2", Content: "こんにちは",
	})

	assert.Empty(t, sender.sent)
	assert.Equal(t, 0, o.buffers.Len("ja-1"))
}

func TestHandleMessageAttachmentsOnly(t *testing.T) {
	o, sender, engine := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro",
		Attachments: []Attachment{
			{URL: "https://cdn.example/a.png", ContentType: "image/png"},
			{URL: "https://cdn.example/b.zip", ContentType: "application/zip"},
			{URL: "https://cdn.example/c.jpg", ContentType: "image/jpeg"},
		},
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "__**<@1>**__\nhttps://cdn.example/a.png\nhttps://cdn.example/c.jpg",
		sender.sent[0].Content)
	assert.Empty(t, engine.calls)
}

func TestHandleMessageNothingToForward(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro",
		Attachments: []Attachment{{URL: "https://cdn.example/b.zip", ContentType: "application/zip"}},
	})

	assert.Empty(t, sender.sent)
}

func TestHandleMessageReplyThreading(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{
		ChannelID: "ja-1", MessageID: "parent", Mention: "<@1>",
		AuthorName: "taro", Content: "おはよう",
	})
	require.Len(t, sender.sent, 1)

	o.HandleMessage(ctx, Message{
		ChannelID: "ja-1", MessageID: "child", Mention: "<@2>",
		AuthorName: "alice", Content: "元気？", ReplyToID: "parent",
	})

	require.Len(t, sender.sent, 2)
	require.NotNil(t, sender.sent[1].ReplyTo)
	assert.Equal(t, "en-1", sender.sent[1].ReplyTo.ChannelID)
	assert.Equal(t, "out-1", sender.sent[1].ReplyTo.MessageID)
}

func TestHandleMessageReplyToUnknownParent(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "child", Mention: "<@2>",
		AuthorName: "alice", Content: "元気？", ReplyToID: "never-relayed",
	})

	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].ReplyTo)
}

func TestHandleMessageReplyAcrossChannelsSuppressed(t *testing.T) {
	// Parent relayed from en-1 to ja-1, child posted in ja-1 replying
	// to the original in en-1's counterpart channel mismatch case: the
	// recorded counterpart of the parent lives in ja-1, but the child's
	// own target is en-1, so no reference is used.
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{
		ChannelID: "en-1", MessageID: "parent", Mention: "<@1>",
		AuthorName: "alice", Content: "hello",
	})
	require.Len(t, sender.sent, 1)

	o.HandleMessage(ctx, Message{
		ChannelID: "en-1", MessageID: "child", Mention: "<@2>",
		AuthorName: "bob", Content: "hi", ReplyToID: "parent",
	})

	require.Len(t, sender.sent, 2)
	require.NotNil(t, sender.sent[1].ReplyTo)
	assert.Equal(t, "ja-1", sender.sent[1].ReplyTo.ChannelID)
}

func TestHandleMessageSendFailureLeavesNoRecord(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	sender.sendErr = errors.New("api down")

	o.HandleMessage(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "おはよう",
	})

	assert.Equal(t, 0, o.ids.Len())
}

func TestHandleMessageContextAccumulates(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro", Content: "おはよう"})
	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m2", Mention: "<@2>", AuthorName: "alice", Content: "hello"})

	snap := o.buffers.Snapshot("ja-1")
	assert.Equal(t, "taro: おはよう\nalice: hello", snap)
}

func TestHandleEditUpdatesCounterpart(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "おはよう",
	})
	require.Len(t, sender.sent, 1)

	o.HandleEdit(ctx, Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "おやすみ",
	})

	require.Len(t, sender.edits, 1)
	assert.Equal(t, "en-1", sender.edits[0].ChannelID)
	assert.Equal(t, "out-1", sender.edits[0].MessageID)
	assert.Equal(t, "__**<@1>**__\n[en]おやすみ", sender.edits[0].Content)

	// The edited line is appended to the log, not substituted.
	assert.Equal(t, "taro: おはよう\ntaro: おやすみ", o.buffers.Snapshot("ja-1"))
}

func TestHandleEditWithoutRecordOnlyLogsContext(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())

	o.HandleEdit(context.Background(), Message{
		ChannelID: "ja-1", MessageID: "never-seen", Mention: "<@1>",
		AuthorName: "taro", Content: "おやすみ",
	})

	assert.Empty(t, sender.edits)
	assert.Equal(t, "taro: おやすみ", o.buffers.Snapshot("ja-1"))
}

func TestHandleDeleteRemovesCounterpart(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "おはよう",
	})
	require.Equal(t, 2, o.ids.Len())

	o.HandleDelete(ctx, Message{ChannelID: "ja-1", MessageID: "m1"})

	require.Len(t, sender.deletes, 1)
	assert.Equal(t, identity.Ref{ChannelID: "en-1", MessageID: "out-1"}, sender.deletes[0])
	assert.Equal(t, 0, o.ids.Len())
}

func TestHandleDeleteOfRelayedCopyKeepsOriginal(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())
	ctx := context.Background()

	o.HandleMessage(ctx, Message{
		ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>",
		AuthorName: "taro", Content: "おはよう",
	})
	require.Equal(t, 2, o.ids.Len())

	// Someone removes the bot's forwarded copy. The author's original
	// must survive; only the mapping goes away.
	o.HandleDelete(ctx, Message{ChannelID: "en-1", MessageID: "out-1"})

	assert.Empty(t, sender.deletes)
	assert.Equal(t, 0, o.ids.Len())

	// With the pair unlinked, a later delete of the original finds no
	// record and propagates nothing.
	o.HandleDelete(ctx, Message{ChannelID: "ja-1", MessageID: "m1"})
	assert.Empty(t, sender.deletes)
}

func TestHandleDeleteWithoutRecordIsNoop(t *testing.T) {
	o, sender, _ := newTestOrchestrator(t, jaEnPairings())

	o.HandleDelete(context.Background(), Message{ChannelID: "ja-1", MessageID: "never-seen"})

	assert.Empty(t, sender.deletes)
}

type fakeComparator struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeComparator) Enqueue(_, messageID, _, _ string, target translate.Language) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, fmt.Sprintf("%s:%s", messageID, target))
}

func TestComparatorReceivesTranslatedMessagesOnly(t *testing.T) {
	comp := &fakeComparator{}
	o, _, _ := newTestOrchestrator(t, jaEnPairings(), WithComparator(comp))
	ctx := context.Background()

	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro", Content: "おはよう"})
	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m2", Mention: "<@1>", AuthorName: "taro", Content: "already english"})

	assert.Equal(t, []string{"m1:en"}, comp.entries)
}

type fakePrompter struct {
	mu        sync.Mutex
	posted    []string
	retracted []string
	ephemeral []string
	nextID    int
}

func (f *fakePrompter) PostPrompt(_ context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("prompt-%d", f.nextID)
	f.posted = append(f.posted, channelID+"/"+id)
	return id, nil
}

func (f *fakePrompter) RetractPrompt(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, channelID+"/"+messageID)
	return nil
}

func (f *fakePrompter) RespondEphemeral(_ context.Context, token, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, token+":"+content)
	return nil
}

type fakeReplyGenerator struct {
	reply string
	err   error
	seen  []string
}

func (f *fakeReplyGenerator) Suggest(_ context.Context, conversation string) (string, error) {
	f.seen = append(f.seen, conversation)
	return f.reply, f.err
}

func TestSuggesterOfferedAfterRelayAndReplacedByNextMessage(t *testing.T) {
	prompter := &fakePrompter{}
	gen := &fakeReplyGenerator{reply: "いいね！"}
	buffers := memory.NewBuffers(memory.DefaultWindow)
	sug := NewSuggester(prompter, gen, buffers, time.Hour)

	router, err := NewRouter(jaEnPairings())
	require.NoError(t, err)
	o := NewOrchestrator(router, &fakeEngine{}, &fakeSender{}, buffers, WithSuggester(sug))
	ctx := context.Background()

	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro", Content: "おはよう"})
	require.Equal(t, []string{"ja-1/prompt-1"}, prompter.posted)
	assert.Empty(t, prompter.retracted)

	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m2", Mention: "<@2>", AuthorName: "alice", Content: "hello"})
	assert.Equal(t, []string{"ja-1/prompt-1"}, prompter.retracted)
	assert.Equal(t, []string{"ja-1/prompt-1", "ja-1/prompt-2"}, prompter.posted)
}

func TestBotActivityRetractsPrompt(t *testing.T) {
	// A bot-authored message is never relayed, but it still counts as
	// channel activity: the relay's own forwarded message in a
	// self-paired channel must take a stale prompt down with it.
	prompter := &fakePrompter{}
	buffers := memory.NewBuffers(memory.DefaultWindow)
	sug := NewSuggester(prompter, &fakeReplyGenerator{}, buffers, time.Hour)

	router, err := NewRouter([]config.Pairing{{Source: "mixed", Target: "mixed"}})
	require.NoError(t, err)
	o := NewOrchestrator(router, &fakeEngine{}, &fakeSender{}, buffers, WithSuggester(sug))
	ctx := context.Background()

	o.HandleMessage(ctx, Message{ChannelID: "mixed", MessageID: "m1", Mention: "<@1>", AuthorName: "taro", Content: "こんにちは"})
	require.Equal(t, []string{"mixed/prompt-1"}, prompter.posted)

	o.HandleChannelActivity(ctx, Message{ChannelID: "mixed", MessageID: "bot-relay-1", Bot: true})
	assert.Equal(t, []string{"mixed/prompt-1"}, prompter.retracted)
}

func TestPromptDoesNotRetractItself(t *testing.T) {
	prompter := &fakePrompter{}
	buffers := memory.NewBuffers(memory.DefaultWindow)
	sug := NewSuggester(prompter, &fakeReplyGenerator{}, buffers, time.Hour)

	router, err := NewRouter(jaEnPairings())
	require.NoError(t, err)
	o := NewOrchestrator(router, &fakeEngine{}, &fakeSender{}, buffers, WithSuggester(sug))
	ctx := context.Background()

	o.HandleMessage(ctx, Message{ChannelID: "ja-1", MessageID: "m1", Mention: "<@1>", AuthorName: "taro", Content: "おはよう"})
	require.Equal(t, []string{"ja-1/prompt-1"}, prompter.posted)

	// The prompt message itself arrives as bot activity in the same
	// channel. It must not tear itself down.
	o.HandleChannelActivity(ctx, Message{ChannelID: "ja-1", MessageID: "prompt-1", Bot: true})
	assert.Empty(t, prompter.retracted)

	// Unrelated activity still retracts it.
	o.HandleChannelActivity(ctx, Message{ChannelID: "ja-1", MessageID: "other", Bot: true})
	assert.Equal(t, []string{"ja-1/prompt-1"}, prompter.retracted)
}

func TestSuggesterExpiry(t *testing.T) {
	prompter := &fakePrompter{}
	buffers := memory.NewBuffers(memory.DefaultWindow)
	sug := NewSuggester(prompter, &fakeReplyGenerator{}, buffers, 20*time.Millisecond)

	sug.Offer(context.Background(), "ja-1")

	assert.Eventually(t, func() bool {
		prompter.mu.Lock()
		defer prompter.mu.Unlock()
		return len(prompter.retracted) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSuggesterAnswer(t *testing.T) {
	prompter := &fakePrompter{}
	gen := &fakeReplyGenerator{reply: "いいね、行こう！"}
	buffers := memory.NewBuffers(memory.DefaultWindow)
	buffers.Append("ja-1", "taro", "週末どうする？")
	sug := NewSuggester(prompter, gen, buffers, time.Hour)

	sug.Answer(context.Background(), "ja-1", "tok-1")

	require.Len(t, prompter.ephemeral, 1)
	assert.Equal(t, "tok-1:いいね、行こう！", prompter.ephemeral[0])
	require.Len(t, gen.seen, 1)
	assert.True(t, strings.Contains(gen.seen[0], "taro: 週末どうする？"))
}

func TestSuggesterAnswerFailureIsSwallowed(t *testing.T) {
	prompter := &fakePrompter{}
	gen := &fakeReplyGenerator{err: errors.New("quota")}
	sug := NewSuggester(prompter, gen, memory.NewBuffers(memory.DefaultWindow), time.Hour)

	sug.Answer(context.Background(), "ja-1", "tok-1")

	assert.Empty(t, prompter.ephemeral)
}
