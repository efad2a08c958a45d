package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/connecta-server/internal/content"
)

// PublicRoom is the name of the single public room.
const PublicRoom = "GENERAL"

// Conversations stores the public room log and one log per pair of users.
type Conversations struct {
	public  *messageLog
	private map[string]*messageLog
	now     func() time.Time
	newID   func() string
}

// NewConversations builds a store whose public log keeps at most publicLimit
// messages (zero keeps everything). Private logs are unbounded.
func NewConversations(publicLimit int, now func() time.Time, newID func() string) *Conversations {
	return &Conversations{
		public:  newMessageLog(publicLimit),
		private: make(map[string]*messageLog),
		now:     now,
		newID:   newID,
	}
}

// ConversationKey identifies the direct conversation between a and b regardless of order.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// AppendPublic stores a public room message.
func (s *Conversations) AppendPublic(from, body string) (*Message, error) {
	if content.Blank(body) {
		return nil, fmt.Errorf("append public message: %w", ErrEmptyContent)
	}
	msg := s.newMessage(from, "", body)
	s.public.append(msg)
	return msg, nil
}

// AppendPrivate stores a direct message and returns the conversation key.
// The recipient does not need to be known or online.
func (s *Conversations) AppendPrivate(from, to, body string) (*Message, string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, "", fmt.Errorf("append private message: %w", ErrMissingRecipient)
	}
	if content.Blank(body) {
		return nil, "", fmt.Errorf("append private message: %w", ErrEmptyContent)
	}

	key := ConversationKey(from, to)
	log, ok := s.private[key]
	if !ok {
		log = newMessageLog(0)
		s.private[key] = log
	}

	msg := s.newMessage(from, to, body)
	log.append(msg)
	return msg, key, nil
}

// PublicHistory returns up to limit of the newest public messages, oldest first.
func (s *Conversations) PublicHistory(limit int) []Message {
	return s.public.last(limit)
}

// PrivateHistory returns up to limit of the newest messages between a and b,
// oldest first. An unknown pair yields an empty slice.
func (s *Conversations) PrivateHistory(a, b string, limit int) []Message {
	log, ok := s.private[ConversationKey(a, b)]
	if !ok {
		return []Message{}
	}
	return log.last(limit)
}

// FindPublic looks up a message in the public log only.
func (s *Conversations) FindPublic(id string) *Message {
	return s.public.find(id)
}

// FindPrivate looks up a message in the conversation between a and b only.
func (s *Conversations) FindPrivate(a, b, id string) *Message {
	log, ok := s.private[ConversationKey(a, b)]
	if !ok {
		return nil
	}
	return log.find(id)
}

// PublicCount reports how many public messages are retained.
func (s *Conversations) PublicCount() int {
	return s.public.len()
}

func (s *Conversations) newMessage(from, to, body string) *Message {
	return &Message{
		ID:        s.newID(),
		From:      from,
		To:        to,
		Content:   body,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
}
