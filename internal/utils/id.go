package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random identifier for a connection.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return fallbackID()
}

// NewMessageID returns a time-ordered identifier for a chat message.
// UUIDv7 carries a millisecond timestamp followed by random bits.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String()
	}
	return fallbackID()
}

func fallbackID() string {
	const size = 6

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
