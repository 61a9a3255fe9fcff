// Package detect classifies text as Japanese or not by Unicode script
// ranges. This is deliberately a binary classifier, not language
// identification: the relay only ever needs to pick between two
// directions and to check that a translation landed on the right side.
package detect

// Japanese reports whether text contains at least one character in the
// hiragana/katakana block (U+3040..U+30FF) or the CJK unified
// ideograph range (U+4E00..U+9FAF). Short-circuits on first match.
func Japanese(text string) bool {
	for _, r := range text {
		if (r >= 0x3040 && r <= 0x30FF) || (r >= 0x4E00 && r <= 0x9FAF) {
			return true
		}
	}
	return false
}
