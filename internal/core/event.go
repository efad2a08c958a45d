package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUsersStatus carries the presence snapshot of every known user.
	EventUsersStatus EventKind = iota
	// EventUsers carries the names of online users.
	EventUsers
	// EventPublicHistory replays the public room.
	EventPublicHistory
	// EventAvatars carries every stored avatar.
	EventAvatars
	// EventBackgrounds carries every stored background.
	EventBackgrounds
	// EventPublicMessage notifies about a new public room message.
	EventPublicMessage
	// EventPrivateMessage notifies both participants about a direct message.
	EventPrivateMessage
	// EventPrivateHistory answers a private history request.
	EventPrivateHistory
	// EventReactionUpdate carries the full reaction map of one message.
	EventReactionUpdate
	EventAvatarUpdate
	EventBackgroundUpdate
	EventTyping
	EventTypingStop
	// EventError notifies clients about a rejected command.
	EventError
)

var eventNames = [...]string{
	EventUsersStatus:      "users_status",
	EventUsers:            "users",
	EventPublicHistory:    "public_history",
	EventAvatars:          "avatars",
	EventBackgrounds:      "backgrounds",
	EventPublicMessage:    "new_public_message",
	EventPrivateMessage:   "new_private_message",
	EventPrivateHistory:   "private_history",
	EventReactionUpdate:   "message_reaction_update",
	EventAvatarUpdate:     "avatarUpdate",
	EventBackgroundUpdate: "backgroundUpdate",
	EventTyping:           "typing",
	EventTypingStop:       "typing_stop",
	EventError:            "error",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is sent to clients to describe what happened in the system.
// One event value may be shared by many clients and must not be mutated after sending.
type Event struct {
	Kind         EventKind
	User         string // typing sender, avatar or background owner
	With         string // private history counterpart
	URL          string
	Scope        Scope
	MessageID    string
	Conversation string // private reactions
	Message      Message
	Messages     []Message
	Reactions    map[string][]string
	Presence     []Presence
	Names        []string
	Profiles     map[string]string // avatars or backgrounds
	Error        *CoreError
}

// Presence is one entry of the users_status snapshot.
type Presence struct {
	Username string
	Online   bool
	LastSeen *time.Time // nil while online
	Avatar   string
}
