package domain

import "errors"

var (
	ErrNotFound           = errors.New("project not found")
	ErrNotParticipant     = errors.New("user is not a participant of this project")
	ErrForbidden          = errors.New("action not allowed for this role")
	ErrInvalidTransition  = errors.New("action not allowed in current status")
	ErrRevisionsExhausted = errors.New("revision budget exhausted")
	ErrFeedbackRequired   = errors.New("revision feedback is required")
	ErrProjectClosed      = errors.New("project is closed")
)
