package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Session is the presence record of one display name.
type Session struct {
	Identity string
	Online   bool
	LastSeen *time.Time
	conns    map[*Client]struct{}
}

// Registry maps display names to their live connections.
// Sessions are kept after the last connection closes so presence can show last-seen.
type Registry struct {
	sessions map[string]*Session
	owners   map[*Client]string
	now      func() time.Time
}

// NewRegistry creates an empty registry using now as its clock.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: make(map[string]*Session),
		owners:   make(map[*Client]string),
		now:      now,
	}
}

// Join binds c to identity, creating the session on first use.
// A client already bound to another identity is moved. It reports whether
// anything changed.
func (r *Registry) Join(identity string, c *Client) (bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, fmt.Errorf("join: %w", ErrMissingIdentity)
	}

	if prev, ok := r.owners[c]; ok {
		if prev == identity {
			return false, nil
		}
		r.Detach(c)
	}

	s, ok := r.sessions[identity]
	if !ok {
		s = &Session{
			Identity: identity,
			conns:    make(map[*Client]struct{}),
		}
		r.sessions[identity] = s
	}
	s.conns[c] = struct{}{}
	s.Online = true
	s.LastSeen = nil
	r.owners[c] = identity
	return true, nil
}

// Detach removes c from its session. wentOffline is true when c was the
// session's last connection. ok is false for clients that never joined.
func (r *Registry) Detach(c *Client) (identity string, wentOffline bool, ok bool) {
	identity, ok = r.owners[c]
	if !ok {
		return "", false, false
	}
	delete(r.owners, c)

	s := r.sessions[identity]
	delete(s.conns, c)
	if len(s.conns) == 0 {
		seen := r.now().UTC().Truncate(time.Millisecond)
		s.Online = false
		s.LastSeen = &seen
		wentOffline = true
	}
	return identity, wentOffline, true
}

// Resolve returns the live connections of identity ordered by client ID.
func (r *Registry) Resolve(identity string) []*Client {
	s, ok := r.sessions[identity]
	if !ok || len(s.conns) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IdentityOf returns the name c joined with.
func (r *Registry) IdentityOf(c *Client) (string, bool) {
	identity, ok := r.owners[c]
	return identity, ok
}

// Snapshot lists every known session sorted by name. Avatar is left empty.
func (r *Registry) Snapshot() []Presence {
	out := make([]Presence, 0, len(r.sessions))
	for _, s := range r.sessions {
		p := Presence{Username: s.Identity, Online: s.Online}
		if s.LastSeen != nil {
			seen := *s.LastSeen
			p.LastSeen = &seen
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// OnlineNames returns the sorted names with at least one live connection.
func (r *Registry) OnlineNames() []string {
	out := make([]string, 0, len(r.sessions))
	for name, s := range r.sessions {
		if s.Online {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// OnlineCount reports how many sessions are online.
func (r *Registry) OnlineCount() int {
	n := 0
	for _, s := range r.sessions {
		if s.Online {
			n++
		}
	}
	return n
}
