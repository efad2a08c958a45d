package core

import "errors"

// Error codes reported to clients when error reporting is enabled.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotJoined       = "not_joined"
	ErrCodeEmptyContent    = "empty_content"
	ErrCodeMessageNotFound = "message_not_found"
	ErrCodeUnknownEvent    = "unknown_event"
	ErrCodeRateLimited     = "rate_limited"
)

var (
	ErrMissingIdentity    = coreError(ErrCodeBadRequest, "username is required")
	ErrMissingRecipient   = coreError(ErrCodeBadRequest, "recipient is required")
	ErrMissingCounterpart = coreError(ErrCodeBadRequest, "counterpart is required")
	ErrMissingURL         = coreError(ErrCodeBadRequest, "url is required")
	ErrMissingReaction    = coreError(ErrCodeBadRequest, "message id and reaction are required")
	ErrInvalidScope       = coreError(ErrCodeBadRequest, "invalid scope")
	ErrNotJoined          = coreError(ErrCodeNotJoined, "join before sending")
	ErrEmptyContent       = coreError(ErrCodeEmptyContent, "message content is empty")
	ErrMessageNotFound    = coreError(ErrCodeMessageNotFound, "message not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError extracts the wire error from err, falling back to a bad_request error.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeBadRequest, err.Error())
}
