// Package identity tracks which relayed message mirrors which original.
// The map is the relay's only link between the two sides of a pairing:
// edit and delete propagation and reply threading all resolve through
// it. State is in-memory by design; a restart starts clean.
package identity

import "sync"

// Ref identifies one message on the platform.
type Ref struct {
	ChannelID string
	MessageID string
}

type entry struct {
	counterpart Ref
	source      bool
}

// Map is a bidirectional (channel,message) -> (channel,message)
// registry. Entries always exist in forward/reverse pairs; each entry
// remembers whether its key is the original (source) or the relayed
// copy, so delete propagation only ever flows source -> copy.
type Map struct {
	mu   sync.Mutex
	refs map[Ref]entry
}

func NewMap() *Map {
	return &Map{refs: make(map[Ref]entry)}
}

// Link records src -> dst and dst -> src atomically. src is the
// original message, dst the relayed copy.
func (m *Map) Link(src, dst Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs[src] = entry{counterpart: dst, source: true}
	m.refs[dst] = entry{counterpart: src, source: false}
}

// Lookup returns the counterpart of ref, if one is recorded.
func (m *Map) Lookup(ref Ref) (Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.refs[ref]
	return e.counterpart, ok
}

// Unlink removes ref and its counterpart in one step. It returns the
// counterpart and whether ref was the source side of the pair.
// Unlinking an unknown ref is a no-op.
func (m *Map) Unlink(ref Ref) (counterpart Ref, source, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, found := m.refs[ref]
	if !found {
		return Ref{}, false, false
	}
	delete(m.refs, ref)
	delete(m.refs, e.counterpart)
	return e.counterpart, e.source, true
}

// Len returns the number of stored entries (two per linked pair).
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.refs)
}
