package domain

import (
	"errors"
	"time"

	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

// Message is one entry in a project's conversation. ReadAt is set when the
// other party acknowledges the message, nil until then.
type Message struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"project_id"`
	SenderID   string        `json:"sender_id"`
	SenderRole projects.Role `json:"sender_role"`
	Body       string        `json:"body"`
	CreatedAt  time.Time     `json:"created_at"`
	ReadAt     *time.Time    `json:"read_at,omitempty"`
}

var ErrEmptyMessage = errors.New("message body is empty")
