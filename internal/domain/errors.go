package domain

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrVersionConflict means the stored conversation moved on since it was loaded.
	ErrVersionConflict = errors.New("conversation version conflict")
)
