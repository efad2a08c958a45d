package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a display name.
	CommandJoin CommandKind = iota
	// CommandPublicMessage posts to the public room.
	CommandPublicMessage
	// CommandPrivateMessage posts to a direct conversation.
	CommandPrivateMessage
	// CommandPrivateHistory requests the full log of a direct conversation.
	CommandPrivateHistory
	// CommandPublicHistory requests the public room replay.
	CommandPublicHistory
	// CommandListUsers requests the current presence lists.
	CommandListUsers
	// CommandReact toggles a reaction on a message.
	CommandReact
	// CommandAvatarChange stores a user's avatar URL.
	CommandAvatarChange
	// CommandBackgroundUpdate stores a user's background URL.
	CommandBackgroundUpdate
	// CommandTyping signals that the user started typing.
	CommandTyping
	// CommandTypingStop signals that the user stopped typing.
	CommandTypingStop
)

var commandNames = [...]string{
	CommandJoin:             "join",
	CommandPublicMessage:    "public_message",
	CommandPrivateMessage:   "private_message",
	CommandPrivateHistory:   "get_private_history",
	CommandPublicHistory:    "request_public_history",
	CommandListUsers:        "request_users",
	CommandReact:            "react_message",
	CommandAvatarChange:     "avatarChange",
	CommandBackgroundUpdate: "backgroundUpdate",
	CommandTyping:           "typing",
	CommandTypingStop:       "typing_stop",
}

func (k CommandKind) String() string {
	if k >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Scope selects the audience of reactions and typing notices.
type Scope string

const (
	ScopePublic  Scope = "public"
	ScopePrivate Scope = "private"
	// ScopeRoom is the typing scope for the public room.
	ScopeRoom Scope = "room"
)

// Command represents an action requested by a client.
// Only the fields relevant to Kind are set.
type Command struct {
	Kind      CommandKind
	Username  string // join, avatarChange, backgroundUpdate
	To        string // private_message, typing
	With      string // get_private_history, react_message
	Content   string
	MessageID string
	Reaction  string
	Scope     Scope
	URL       string // avatar or background
}
