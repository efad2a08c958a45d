package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Inbound event names.
const (
	EventJoin                 = "join"
	EventPublicMessage        = "public_message"
	EventPrivateMessage       = "private_message"
	EventGetPrivateHistory    = "get_private_history"
	EventRequestPublicHistory = "request_public_history"
	EventRequestUsers         = "request_users"
	EventReactMessage         = "react_message"
	EventAvatarChange         = "avatarChange"
	EventBackgroundUpdate     = "backgroundUpdate"
	EventTyping               = "typing"
	EventTypingStop           = "typing_stop"
)

// Outbound event names. backgroundUpdate, typing and typing_stop reuse the inbound names.
const (
	EventUsersStatus           = "users_status"
	EventUsers                 = "users"
	EventPublicHistory         = "public_history"
	EventAvatars               = "avatars"
	EventBackgrounds           = "backgrounds"
	EventNewPublicMessage      = "new_public_message"
	EventNewPrivateMessage     = "new_private_message"
	EventPrivateHistory        = "private_history"
	EventMessageReactionUpdate = "message_reaction_update"
	EventAvatarUpdate          = "avatarUpdate"
	EventError                 = "error"
)

// TimeLayout is the ISO-8601 layout used for every timestamp on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
