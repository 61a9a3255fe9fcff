package compare

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tally keeps in-memory per-model win counts for the session. It is
// not persisted; the CSV log is the durable record.
type Tally struct {
	mu      sync.RWMutex
	wins    map[string]int
	draws   int
	unknown int
	total   int
}

func NewTally() *Tally {
	return &Tally{wins: make(map[string]int)}
}

// Record counts one resolved vote.
func (t *Tally) Record(sel Selection, modelA, modelB string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	switch sel {
	case SelectionA:
		t.wins[modelA]++
	case SelectionB:
		t.wins[modelB]++
	case SelectionSame:
		t.draws++
	default:
		t.unknown++
	}
}

// Wins returns the win count for one model.
func (t *Tally) Wins(model string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.wins[model]
}

// Total returns the number of resolved votes.
func (t *Tally) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Summary renders a human-readable multi-line report for shutdown.
func (t *Tally) Summary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.total == 0 {
		return "No comparison votes recorded."
	}

	models := make([]string, 0, len(t.wins))
	for m := range t.wins {
		models = append(models, m)
	}
	sort.Strings(models)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparison votes: %d\n", t.total)
	for _, m := range models {
		fmt.Fprintf(&sb, "  %s: %d wins\n", m, t.wins[m])
	}
	fmt.Fprintf(&sb, "  draws: %d, no preference: %d", t.draws, t.unknown)
	return sb.String()
}
