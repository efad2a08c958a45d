package proto

// JoinData binds the connection to a display name.
type JoinData struct {
	Username string `json:"username" validate:"required"`
}

// PublicMessageData is a message for the public room.
// Blank content is rejected by the hub, not here.
type PublicMessageData struct {
	Content string `json:"content"`
}

// PrivateMessageData is a direct message.
type PrivateMessageData struct {
	To      string `json:"to" validate:"required"`
	Content string `json:"content"`
}

// PrivateHistoryRequest asks for the conversation with another user.
type PrivateHistoryRequest struct {
	With string `json:"with" validate:"required"`
}

// ReactData toggles a reaction. WithUser names the counterpart of a private conversation.
type ReactData struct {
	MsgID    string `json:"msgId" validate:"required"`
	Reaction string `json:"reaction" validate:"required"`
	Scope    string `json:"scope" validate:"required,oneof=public private"`
	WithUser string `json:"withUser" validate:"required_if=Scope private"`
}

type AvatarData struct {
	Username string `json:"username" validate:"required"`
	Avatar   string `json:"avatar" validate:"required"`
}

type BackgroundData struct {
	Username   string `json:"username" validate:"required"`
	Background string `json:"background" validate:"required"`
}

// TypingData starts or stops a typing notice.
type TypingData struct {
	To    string `json:"to" validate:"required_if=Scope private"`
	Scope string `json:"scope" validate:"required,oneof=room private"`
}

// MessageData is the wire shape of a stored message.
type MessageData struct {
	ID        string              `json:"id"`
	From      string              `json:"from"`
	To        string              `json:"to,omitempty"`
	Content   string              `json:"content"`
	CreatedAt string              `json:"createdAt"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// UserStatus is one entry of users_status. LastSeen is null while online.
type UserStatus struct {
	Username string  `json:"username"`
	Online   bool    `json:"online"`
	LastSeen *string `json:"lastSeen"`
	Avatar   string  `json:"avatar,omitempty"`
}

type PrivateHistoryData struct {
	With    string        `json:"with"`
	History []MessageData `json:"history"`
}

type ReactionUpdateData struct {
	Scope     string              `json:"scope"`
	MsgID     string              `json:"msgId"`
	Reactions map[string][]string `json:"reactions"`
	Conv      string              `json:"conv,omitempty"`
}

type AvatarUpdateData struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type BackgroundUpdateData struct {
	Username   string `json:"username"`
	Background string `json:"background"`
}

type TypingEventData struct {
	From  string `json:"from"`
	Scope string `json:"scope"`
}
