package translate

import (
	"context"
	"time"

	"github.com/tinyland-inc/kakehashi/pkg/detect"
	"github.com/tinyland-inc/kakehashi/pkg/logger"
)

const (
	// DefaultMaxRetries is the number of retries after the first
	// attempt, so the pipeline makes at most 1+DefaultMaxRetries calls.
	DefaultMaxRetries = 2
	defaultBackoff    = time.Second
	defaultTimeout    = 60 * time.Second
)

// Pipeline wraps a Translator with validated retry: an attempt is only
// accepted when its output lands in the expected target language.
// When every attempt fails validation the last non-empty output is
// returned anyway, on the theory that a wrong-language translation is
// still more useful to a human reader than silence.
type Pipeline struct {
	provider   Translator
	maxRetries int
	timeout    time.Duration

	// backoff between attempts; overridable in tests.
	backoff time.Duration
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxRetries sets the retry budget after the first attempt.
func WithMaxRetries(n int) PipelineOption {
	return func(p *Pipeline) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithTimeout bounds each individual provider call.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithBackoff overrides the inter-attempt sleep.
func WithBackoff(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.backoff = d }
}

func NewPipeline(provider Translator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider:   provider,
		maxRetries: DefaultMaxRetries,
		timeout:    defaultTimeout,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// validated reports whether text is acceptable as a translation into
// the target language. Translating into English must not look
// Japanese; translating into Japanese must.
func validated(text string, target Language) bool {
	if text == "" {
		return false
	}
	if target == Japanese {
		return detect.Japanese(text)
	}
	return !detect.Japanese(text)
}

// Translate runs the validated-retry loop. It never returns an empty
// Text: on total failure the localized placeholder is substituted.
func (p *Pipeline) Translate(ctx context.Context, text, contextStr string, target Language) Result {
	instruction := Instruction(target, contextStr)

	lastResult := ""
	attempts := 0
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		out, err := p.provider.Translate(callCtx, Request{
			Text:        text,
			Instruction: instruction,
			Temperature: 0,
		})
		cancel()
		if err != nil {
			// A timeout or transport failure is treated the same as an
			// empty output: eligible for retry.
			logger.WarnCF("translate", "Attempt failed", map[string]any{
				"attempt": attempt + 1,
				"target":  string(target),
				"error":   err.Error(),
			})
			out = ""
		}

		if validated(out, target) {
			return Result{Text: out, Validated: true, Attempts: attempts}
		}
		if out != "" {
			lastResult = out
		}

		if attempt < p.maxRetries {
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
				attempt = p.maxRetries // stop retrying, fall through to last result
			}
		}
	}

	if lastResult != "" {
		logger.WarnCF("translate", "Returning unvalidated result", map[string]any{
			"target":   string(target),
			"attempts": attempts,
		})
		return Result{Text: lastResult, Validated: false, Attempts: attempts}
	}

	return Result{Text: Placeholder(target), Validated: false, Attempts: attempts}
}

// Suggest asks the provider for one reply candidate based on the
// conversation log. Unlike Translate it has no validation loop; a
// failure is surfaced to the caller.
func (p *Pipeline) Suggest(ctx context.Context, contextStr string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.provider.Translate(callCtx, Request{
		Text:        SuggestPrompt,
		Instruction: SuggestInstruction(contextStr),
		Temperature: 0.7,
	})
}
