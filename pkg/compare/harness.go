package compare

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/kakehashi/pkg/config"
	"github.com/tinyland-inc/kakehashi/pkg/logger"
	"github.com/tinyland-inc/kakehashi/pkg/translate"
)

const (
	defaultQueueSize = 32
	defaultSettle    = time.Second
)

// Job is one translated message submitted for comparison.
type Job struct {
	ChannelID    string
	MessageID    string
	Text         string
	Conversation string
	Target       translate.Language
}

// Session is a pending comparison awaiting a vote. ModelA and ModelB
// are already label-shuffled, so the voter never learns which model
// produced which output.
type Session struct {
	ID         string
	ChannelID  string
	MessageID  string
	SourceText string
	ModelA     string
	ModelB     string
	OutputA    string
	OutputB    string
}

// Presenter renders a comparison session to voters.
type Presenter interface {
	Present(ctx context.Context, session *Session) error
}

// Harness queues comparison jobs and runs them on a single worker, so
// the local model server only ever sees one job at a time.
type Harness struct {
	querier   Querier
	models    [2]config.ModelParams
	presenter Presenter
	log       *VoteLog
	tally     *Tally

	settle  time.Duration
	shuffle func() bool

	jobs   chan Job
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithSettle overrides the pause between the two model queries.
func WithSettle(d time.Duration) HarnessOption {
	return func(h *Harness) { h.settle = d }
}

// WithShuffle overrides the A/B label coin flip.
func WithShuffle(f func() bool) HarnessOption {
	return func(h *Harness) { h.shuffle = f }
}

// NewHarness builds a harness comparing the first two configured
// models.
func NewHarness(querier Querier, models []config.ModelParams, presenter Presenter, log *VoteLog, tally *Tally, opts ...HarnessOption) *Harness {
	h := &Harness{
		querier:   querier,
		models:    [2]config.ModelParams{models[0], models[1]},
		presenter: presenter,
		log:       log,
		tally:     tally,
		settle:    defaultSettle,
		shuffle:   func() bool { return rand.IntN(2) == 1 },
		jobs:      make(chan Job, defaultQueueSize),
		done:      make(chan struct{}),
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start launches the worker goroutine.
func (h *Harness) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case job := <-h.jobs:
				h.runJob(ctx, job)
			case <-h.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop shuts the worker down and waits for it.
func (h *Harness) Stop() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.done)
	}
	h.wg.Wait()
}

// Enqueue submits a job without blocking. When the queue is full or
// the harness has stopped the job is dropped.
func (h *Harness) Enqueue(channelID, messageID, text, conversation string, target translate.Language) {
	if h.closed.Load() {
		return
	}
	job := Job{
		ChannelID:    channelID,
		MessageID:    messageID,
		Text:         text,
		Conversation: conversation,
		Target:       target,
	}
	select {
	case h.jobs <- job:
	default:
		logger.WarnCF("compare", "Queue full, dropping job", map[string]any{
			"channel": channelID,
			"message": messageID,
		})
	}
}

func (h *Harness) runJob(ctx context.Context, job Job) {
	system := translate.ComparisonInstruction(job.Target, job.Conversation)

	outputs := make([]string, 2)
	for i, model := range h.models {
		if i > 0 {
			select {
			case <-time.After(h.settle):
			case <-ctx.Done():
				return
			}
		}

		out, err := h.querier.Query(ctx, model, system, job.Text)
		if err != nil {
			logger.WarnCF("compare", "Model query failed", map[string]any{
				"model": model.ID,
				"error": err.Error(),
			})
			continue
		}
		outputs[i] = out
	}

	if outputs[0] == "" || outputs[1] == "" {
		logger.DebugCF("compare", "Dropping job, fewer than two outputs", map[string]any{
			"message": job.MessageID,
		})
		return
	}

	session := &Session{
		ID:         uuid.NewString(),
		ChannelID:  job.ChannelID,
		MessageID:  job.MessageID,
		SourceText: job.Text,
		ModelA:     h.models[0].ID,
		ModelB:     h.models[1].ID,
		OutputA:    outputs[0],
		OutputB:    outputs[1],
	}
	if h.shuffle() {
		session.ModelA, session.ModelB = session.ModelB, session.ModelA
		session.OutputA, session.OutputB = session.OutputB, session.OutputA
	}

	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()

	if err := h.presenter.Present(ctx, session); err != nil {
		logger.WarnCF("compare", "Failed to present session", map[string]any{
			"session": session.ID,
			"error":   err.Error(),
		})
		h.mu.Lock()
		delete(h.sessions, session.ID)
		h.mu.Unlock()
	}
}

// Vote resolves a session exactly once. The first vote wins; later
// votes and votes for unknown sessions report ok=false.
func (h *Harness) Vote(sessionID string, sel Selection) (winner string, ok bool) {
	h.mu.Lock()
	session, found := h.sessions[sessionID]
	if found {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if !found {
		return "", false
	}

	winner = WinnerFor(sel, session.ModelA, session.ModelB)
	entry := Entry{
		Timestamp:       time.Now(),
		SourceChannelID: session.ChannelID,
		MessageID:       session.MessageID,
		ModelA:          session.ModelA,
		ModelB:          session.ModelB,
		Selected:        sel,
		WinnerModel:     winner,
	}
	if err := h.log.Append(entry); err != nil {
		logger.ErrorCF("compare", "Failed to append vote log", map[string]any{
			"session": sessionID,
			"error":   err.Error(),
		})
	}
	h.tally.Record(sel, session.ModelA, session.ModelB)

	return winner, true
}

// Pending returns the number of unresolved sessions.
func (h *Harness) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
