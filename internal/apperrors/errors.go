package apperrors

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrReceiverNotFound     = errors.New("receiver not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrPersistence          = errors.New("persistence failure")
)
