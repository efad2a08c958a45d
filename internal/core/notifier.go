package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/connecta-server/internal/stats"
)

// notifier owns the set of registered connections and delivers events to them.
// Delivery never blocks: a full Events buffer drops the event.
type notifier struct {
	logger  *zerolog.Logger
	stats   stats.Provider
	clients map[*Client]struct{}
}

func newNotifier(logger *zerolog.Logger, st stats.Provider) *notifier {
	return &notifier{
		logger:  logger,
		stats:   st,
		clients: make(map[*Client]struct{}),
	}
}

func (n *notifier) add(c *Client) bool {
	if _, ok := n.clients[c]; ok {
		return false
	}
	n.clients[c] = struct{}{}
	return true
}

func (n *notifier) remove(c *Client) bool {
	if _, ok := n.clients[c]; !ok {
		return false
	}
	delete(n.clients, c)
	return true
}

func (n *notifier) has(c *Client) bool {
	_, ok := n.clients[c]
	return ok
}

func (n *notifier) count() int {
	return len(n.clients)
}

// closeAll closes every client's Events channel and forgets the clients.
func (n *notifier) closeAll() {
	for c := range n.clients {
		close(c.Events)
		delete(n.clients, c)
	}
}

func (n *notifier) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		n.stats.Incr(stats.DroppedEvents)
		n.logger.Warn().
			Str("client_id", c.ID).
			Stringer("event", ev.Kind).
			Msg("client events buffer full, dropping event")
	}
}

func (n *notifier) broadcast(ev *Event) {
	for c := range n.clients {
		n.send(c, ev)
	}
}

// broadcastExcept sends ev to every connection not in skip.
func (n *notifier) broadcastExcept(ev *Event, skip []*Client) {
	excluded := make(map[*Client]struct{}, len(skip))
	for _, c := range skip {
		excluded[c] = struct{}{}
	}
	for c := range n.clients {
		if _, ok := excluded[c]; ok {
			continue
		}
		n.send(c, ev)
	}
}

// deliver sends ev once to each connection across the given groups.
func (n *notifier) deliver(ev *Event, groups ...[]*Client) {
	seen := make(map[*Client]struct{})
	for _, group := range groups {
		for _, c := range group {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			n.send(c, ev)
		}
	}
}
