package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/connecta-server/internal/stats"
	"github.com/vovakirdan/connecta-server/internal/utils"
)

// Options configures a Hub. Zero values select the defaults.
type Options struct {
	Logger *zerolog.Logger
	Stats  stats.Provider

	// PublicLogLimit caps the retained public log; zero keeps everything.
	PublicLogLimit int
	// PublicHistoryLimit caps the public replay; zero sends everything retained.
	PublicHistoryLimit int
	// DefaultAvatarURL fills users_status entries without a stored avatar.
	DefaultAvatarURL string
	// ReportErrors sends an error event to the sender of a rejected command.
	ReportErrors bool
	// Sanitize rewrites message bodies before they are stored.
	Sanitize func(string) string

	Now          func() time.Time
	NewMessageID func() string
}

// Snapshot is a point-in-time view of hub counters.
type Snapshot struct {
	Connections    int
	OnlineUsers    int
	PublicMessages int
}

// inbound is one item of a client's command stream. leave marks the end of
// the stream and is always the client's last item.
type inbound struct {
	client *Client
	cmd    *Command
	leave  bool
}

// Hub routes commands from clients and owns all chat state.
// Every map is touched only by the Run goroutine.
type Hub struct {
	logger *zerolog.Logger
	stats  stats.Provider

	registry      *Registry
	conversations *Conversations
	profiles      *Profiles
	notify        *notifier

	historyLimit  int
	defaultAvatar string
	reportErrors  bool
	sanitize      func(string) string

	register chan *Client
	inbox    chan inbound
	statsReq chan chan Snapshot
	done     chan struct{}
}

// NewHub constructs a hub. Call Run to start processing.
func NewHub(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	st := opts.Stats
	if st == nil {
		st = stats.Nop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewMessageID
	if newID == nil {
		newID = utils.NewMessageID
	}
	sanitize := opts.Sanitize
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}

	return &Hub{
		logger:        logger,
		stats:         st,
		registry:      NewRegistry(now),
		conversations: NewConversations(opts.PublicLogLimit, now, newID),
		profiles:      NewProfiles(),
		notify:        newNotifier(logger, st),
		historyLimit:  opts.PublicHistoryLimit,
		defaultAvatar: opts.DefaultAvatarURL,
		reportErrors:  opts.ReportErrors,
		sanitize:      sanitize,
		register:      make(chan *Client),
		inbox:         make(chan inbound, 256),
		statsReq:      make(chan chan Snapshot),
		done:          make(chan struct{}),
	}
}

// Run processes registrations and commands until ctx is cancelled.
// On exit every registered client's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("hub started")
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case in := <-h.inbox:
			if in.leave {
				h.handleUnregister(in.client)
				continue
			}
			h.dispatch(in.client, in.cmd)
		case reply := <-h.statsReq:
			reply <- h.snapshot()
		}
	}
}

// RegisterClient attaches a connection and starts forwarding its commands.
// If the hub has stopped, the client's Events channel is closed instead.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
		go h.forward(c)
	case <-h.done:
		close(c.Events)
	}
}

// UnregisterClient ends the client's command stream. Commands already sent
// are handled first; the hub then detaches the client and closes its Events
// channel. The caller must not send on Commands afterwards.
func (h *Hub) UnregisterClient(c *Client) {
	c.closeCommands()
}

// Stats returns hub counters as seen by the Run goroutine.
func (h *Hub) Stats(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case h.statsReq <- reply:
	case <-h.done:
		return Snapshot{}, fmt.Errorf("hub stats: %w", context.Canceled)
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) forward(c *Client) {
	for cmd := range c.Commands {
		if !h.enqueue(inbound{client: c, cmd: cmd}) {
			return
		}
	}
	h.enqueue(inbound{client: c, leave: true})
}

func (h *Hub) enqueue(in inbound) bool {
	select {
	case h.inbox <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	h.notify.closeAll()
	h.logger.Info().Msg("hub stopped")
}

func (h *Hub) snapshot() Snapshot {
	return Snapshot{
		Connections:    h.notify.count(),
		OnlineUsers:    h.registry.OnlineCount(),
		PublicMessages: h.conversations.PublicCount(),
	}
}

func (h *Hub) handleRegister(c *Client) {
	if !h.notify.add(c) {
		return
	}
	h.stats.Incr(stats.ActiveConnections)
	h.logger.Debug().Str("client_id", c.ID).Msg("client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	if !h.notify.remove(c) {
		return
	}
	close(c.Events)
	h.stats.Decr(stats.ActiveConnections)

	identity, wentOffline, ok := h.registry.Detach(c)
	log := h.logger.Debug().Str("client_id", c.ID)
	if ok {
		log = log.Str("username", identity).Bool("offline", wentOffline)
		h.stats.Set(stats.OnlineUsers, int64(h.registry.OnlineCount()))
		h.broadcastPresence()
	}
	log.Msg("client unregistered")
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	if cmd == nil || !h.notify.has(c) {
		return
	}

	var err error
	switch cmd.Kind {
	case CommandJoin:
		err = h.handleJoin(c, cmd)
	case CommandPublicMessage:
		err = h.handlePublicMessage(c, cmd)
	case CommandPrivateMessage:
		err = h.handlePrivateMessage(c, cmd)
	case CommandPrivateHistory:
		err = h.handlePrivateHistory(c, cmd)
	case CommandPublicHistory:
		err = h.handlePublicHistory(c)
	case CommandListUsers:
		h.handleListUsers(c)
	case CommandReact:
		err = h.handleReact(c, cmd)
	case CommandAvatarChange:
		err = h.handleAvatarChange(cmd)
	case CommandBackgroundUpdate:
		err = h.handleBackgroundUpdate(cmd)
	case CommandTyping:
		err = h.handleTyping(c, cmd, EventTyping)
	case CommandTypingStop:
		err = h.handleTyping(c, cmd, EventTypingStop)
	default:
		err = coreError(ErrCodeUnknownEvent, "unknown command")
	}

	if err != nil {
		h.reject(c, cmd, err)
	}
}

func (h *Hub) reject(c *Client, cmd *Command, err error) {
	h.logger.Debug().
		Err(err).
		Str("client_id", c.ID).
		Stringer("command", cmd.Kind).
		Msg("command rejected")

	if h.reportErrors {
		h.notify.send(c, &Event{Kind: EventError, Error: AsCoreError(err)})
	}
}

// identity returns the name c joined with, or ErrNotJoined.
func (h *Hub) identity(c *Client, op string) (string, error) {
	name, ok := h.registry.IdentityOf(c)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotJoined)
	}
	return name, nil
}

func (h *Hub) handleJoin(c *Client, cmd *Command) error {
	changed, err := h.registry.Join(cmd.Username, c)
	if err != nil {
		return err
	}
	identity, _ := h.registry.IdentityOf(c)

	if changed {
		h.stats.Set(stats.OnlineUsers, int64(h.registry.OnlineCount()))
		h.logger.Info().Str("client_id", c.ID).Str("username", identity).Msg("user joined")
		h.broadcastPresence()
	}

	h.notify.send(c, &Event{Kind: EventPublicHistory, Messages: h.conversations.PublicHistory(h.historyLimit)})
	h.notify.send(c, &Event{Kind: EventAvatars, Profiles: h.profiles.Avatars()})
	h.notify.send(c, &Event{Kind: EventBackgrounds, Profiles: h.profiles.Backgrounds()})
	return nil
}

func (h *Hub) handlePublicMessage(c *Client, cmd *Command) error {
	from, err := h.identity(c, "public message")
	if err != nil {
		return err
	}
	msg, err := h.conversations.AppendPublic(from, h.sanitize(cmd.Content))
	if err != nil {
		return err
	}
	h.stats.Incr(stats.PublicMessages)

	h.notify.broadcast(&Event{Kind: EventPublicMessage, Message: msg.Snapshot()})
	return nil
}

func (h *Hub) handlePrivateMessage(c *Client, cmd *Command) error {
	from, err := h.identity(c, "private message")
	if err != nil {
		return err
	}
	msg, key, err := h.conversations.AppendPrivate(from, cmd.To, h.sanitize(cmd.Content))
	if err != nil {
		return err
	}
	h.stats.Incr(stats.PrivateMessages)

	ev := &Event{Kind: EventPrivateMessage, Message: msg.Snapshot(), Conversation: key}
	h.notify.deliver(ev, h.registry.Resolve(from), h.registry.Resolve(msg.To))
	return nil
}

func (h *Hub) handlePrivateHistory(c *Client, cmd *Command) error {
	me, err := h.identity(c, "private history")
	if err != nil {
		return err
	}
	with := strings.TrimSpace(cmd.With)
	if with == "" {
		return fmt.Errorf("private history: %w", ErrMissingCounterpart)
	}

	h.notify.send(c, &Event{
		Kind:     EventPrivateHistory,
		With:     with,
		Messages: h.conversations.PrivateHistory(me, with, 0),
	})
	return nil
}

func (h *Hub) handlePublicHistory(c *Client) error {
	if _, err := h.identity(c, "public history"); err != nil {
		return err
	}
	h.notify.send(c, &Event{Kind: EventPublicHistory, Messages: h.conversations.PublicHistory(h.historyLimit)})
	return nil
}

func (h *Hub) handleListUsers(c *Client) {
	h.notify.send(c, &Event{Kind: EventUsersStatus, Presence: h.presence()})
	h.notify.send(c, &Event{Kind: EventUsers, Names: h.registry.OnlineNames()})
}

func (h *Hub) handleReact(c *Client, cmd *Command) error {
	me, err := h.identity(c, "react")
	if err != nil {
		return err
	}
	if cmd.MessageID == "" || cmd.Reaction == "" {
		return fmt.Errorf("react: %w", ErrMissingReaction)
	}

	switch cmd.Scope {
	case ScopePublic:
		msg := h.conversations.FindPublic(cmd.MessageID)
		if msg == nil {
			return fmt.Errorf("react %s: %w", cmd.MessageID, ErrMessageNotFound)
		}
		msg.ToggleReaction(me, cmd.Reaction)
		h.stats.Incr(stats.Reactions)

		h.notify.broadcast(&Event{
			Kind:      EventReactionUpdate,
			Scope:     ScopePublic,
			MessageID: msg.ID,
			Reactions: msg.ReactionsSnapshot(),
		})

	case ScopePrivate:
		with := strings.TrimSpace(cmd.With)
		if with == "" {
			return fmt.Errorf("react: %w", ErrMissingCounterpart)
		}
		msg := h.conversations.FindPrivate(me, with, cmd.MessageID)
		if msg == nil {
			return fmt.Errorf("react %s: %w", cmd.MessageID, ErrMessageNotFound)
		}
		msg.ToggleReaction(me, cmd.Reaction)
		h.stats.Incr(stats.Reactions)

		ev := &Event{
			Kind:         EventReactionUpdate,
			Scope:        ScopePrivate,
			MessageID:    msg.ID,
			Conversation: ConversationKey(me, with),
			Reactions:    msg.ReactionsSnapshot(),
		}
		h.notify.deliver(ev, h.registry.Resolve(me), h.registry.Resolve(with))

	default:
		return fmt.Errorf("react scope %q: %w", cmd.Scope, ErrInvalidScope)
	}
	return nil
}

// Profile updates name their owner in the payload and do not require a join.
func (h *Hub) handleAvatarChange(cmd *Command) error {
	identity, err := h.profiles.SetAvatar(cmd.Username, cmd.URL)
	if err != nil {
		return err
	}
	h.notify.broadcast(&Event{Kind: EventAvatarUpdate, User: identity, URL: strings.TrimSpace(cmd.URL)})
	return nil
}

func (h *Hub) handleBackgroundUpdate(cmd *Command) error {
	identity, err := h.profiles.SetBackground(cmd.Username, cmd.URL)
	if err != nil {
		return err
	}
	h.notify.broadcast(&Event{Kind: EventBackgroundUpdate, User: identity, URL: strings.TrimSpace(cmd.URL)})
	return nil
}

func (h *Hub) handleTyping(c *Client, cmd *Command, kind EventKind) error {
	me, err := h.identity(c, kind.String())
	if err != nil {
		return err
	}
	ev := &Event{Kind: kind, User: me, Scope: cmd.Scope}

	switch cmd.Scope {
	case ScopeRoom:
		h.notify.broadcastExcept(ev, h.registry.Resolve(me))
	case ScopePrivate:
		to := strings.TrimSpace(cmd.To)
		if to == "" {
			return fmt.Errorf("%s: %w", kind, ErrMissingRecipient)
		}
		h.notify.deliver(ev, h.registry.Resolve(to))
	default:
		return fmt.Errorf("%s scope %q: %w", kind, cmd.Scope, ErrInvalidScope)
	}
	return nil
}

func (h *Hub) broadcastPresence() {
	h.notify.broadcast(&Event{Kind: EventUsersStatus, Presence: h.presence()})
	h.notify.broadcast(&Event{Kind: EventUsers, Names: h.registry.OnlineNames()})
}

// presence is the registry snapshot with avatars resolved.
func (h *Hub) presence() []Presence {
	snapshot := h.registry.Snapshot()
	for i := range snapshot {
		snapshot[i].Avatar = h.profiles.AvatarOr(snapshot[i].Username, h.defaultAvatar)
	}
	return snapshot
}
