package core

import (
	"slices"
	"time"
)

// Message is the domain model for a chat message.
// Only the reaction map changes after creation.
type Message struct {
	ID        string
	From      string
	To        string // empty for the public room
	Content   string
	CreatedAt time.Time
	Reactions map[string][]string
}

// Private reports whether the message belongs to a direct conversation.
func (m *Message) Private() bool {
	return m.To != ""
}

// ToggleReaction adds reactor to the symbol's reactor list, or removes it if
// already present. It returns the updated list and whether the reactor was added.
func (m *Message) ToggleReaction(reactor, symbol string) ([]string, bool) {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	reactors, ok := m.Reactions[symbol]
	if !ok {
		reactors = []string{}
	}

	added := false
	if i := slices.Index(reactors, reactor); i >= 0 {
		reactors = slices.Delete(reactors, i, i+1)
	} else {
		reactors = append(reactors, reactor)
		added = true
	}
	m.Reactions[symbol] = reactors

	return slices.Clone(reactors), added
}

// ReactionsSnapshot returns a deep copy of the reaction map.
func (m *Message) ReactionsSnapshot() map[string][]string {
	if len(m.Reactions) == 0 {
		return nil
	}
	out := make(map[string][]string, len(m.Reactions))
	for symbol, reactors := range m.Reactions {
		cp := make([]string, len(reactors))
		copy(cp, reactors)
		out[symbol] = cp
	}
	return out
}

// Snapshot returns a copy safe to hand to other goroutines.
func (m *Message) Snapshot() Message {
	cp := *m
	cp.Reactions = m.ReactionsSnapshot()
	return cp
}
