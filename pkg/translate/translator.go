// Package translate provides the translation pipeline: provider
// clients for the hosted LLM backends and the validated-retry wrapper
// that guarantees a usable (never empty) result.
package translate

import "context"

// Language is a relay-side language tag. The relay only ever routes
// between these two.
type Language string

const (
	English  Language = "en"
	Japanese Language = "ja"
)

// Placeholder strings returned when every translation attempt fails to
// produce any text. Localized to the target language so the reader at
// least sees an error in their own script.
const (
	PlaceholderEnglish  = "Translation error."
	PlaceholderJapanese = "翻訳エラー。"
)

// Request is a single provider call.
type Request struct {
	Text        string
	Instruction string
	Temperature float64
}

// Translator is the provider boundary: one deterministic
// request/response call against a hosted model.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// Result is the outcome of a pipeline translation.
type Result struct {
	Text      string
	Validated bool
	Attempts  int
}

// Placeholder returns the fixed error string for a target language.
func Placeholder(target Language) string {
	if target == Japanese {
		return PlaceholderJapanese
	}
	return PlaceholderEnglish
}
