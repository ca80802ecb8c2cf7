package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/soundbridge/remote-projects-backend/internal/messages/domain"
	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

type ProjectLoader interface {
	GetByID(ctx context.Context, id string) (*projects.Project, error)
}

type Store interface {
	Insert(ctx context.Context, m *domain.Message) (*domain.Message, error)
	List(ctx context.Context, projectID string, since *time.Time, limit, offset int) ([]domain.Message, error)
	MarkRead(ctx context.Context, projectID, readerID string, messageIDs []string) (int, error)
	CountUnread(ctx context.Context, projectID, readerID string) (int, error)
}

// UnreadCounter is the Redis badge counter. Nil-safe via the service guards so
// messaging still works when Redis is down.
type UnreadCounter interface {
	Incr(ctx context.Context, projectID, userID string) error
	Clear(ctx context.Context, projectID, userID string) error
	Get(ctx context.Context, projectID, userID string) (int, bool, error)
	Set(ctx context.Context, projectID, userID string, n int) error
}

type MessageService struct {
	projects ProjectLoader
	store    Store
	unread   UnreadCounter
}

func NewMessageService(p ProjectLoader, store Store, unread UnreadCounter) *MessageService {
	return &MessageService{projects: p, store: store, unread: unread}
}

// Send appends a message. Whitespace-only bodies never reach storage; closed
// projects refuse new messages but keep their history readable.
func (s *MessageService) Send(ctx context.Context, userID, projectID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyMessage
	}

	p, role, err := s.loadAsParticipant(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if p.Closed() {
		return nil, projects.ErrProjectClosed
	}

	m, err := s.store.Insert(ctx, &domain.Message{
		ProjectID:  projectID,
		SenderID:   userID,
		SenderRole: role,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}

	if s.unread != nil {
		other := p.Customer.UserID()
		if role == projects.RoleCustomer {
			other = p.Vendor.UserID()
		}
		if err := s.unread.Incr(ctx, projectID, other); err != nil {
			log.Printf("[messages] incr unread %s/%s: %v", projectID, other, err)
		}
	}

	return m, nil
}

func (s *MessageService) List(ctx context.Context, userID, projectID string, since *time.Time, limit, offset int) ([]domain.Message, error) {
	if _, _, err := s.loadAsParticipant(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, projectID, since, limit, offset)
}

// MarkRead stamps the given messages as read by userID and returns how many
// actually changed. Messages the caller authored, or already-read ones, do not
// count. Clears the caller's unread badge.
func (s *MessageService) MarkRead(ctx context.Context, userID, projectID string, messageIDs []string) (int, error) {
	if _, _, err := s.loadAsParticipant(ctx, userID, projectID); err != nil {
		return 0, err
	}

	n, err := s.store.MarkRead(ctx, projectID, userID, messageIDs)
	if err != nil {
		return 0, err
	}

	if s.unread != nil {
		if err := s.unread.Clear(ctx, projectID, userID); err != nil {
			log.Printf("[messages] clear unread %s/%s: %v", projectID, userID, err)
		}
	}

	return n, nil
}

// Unread serves the badge count, preferring the Redis counter and falling back
// to a row count when the key is missing.
func (s *MessageService) Unread(ctx context.Context, userID, projectID string) (int, error) {
	if _, _, err := s.loadAsParticipant(ctx, userID, projectID); err != nil {
		return 0, err
	}

	if s.unread != nil {
		if n, ok, err := s.unread.Get(ctx, projectID, userID); err == nil && ok {
			return n, nil
		} else if err != nil {
			log.Printf("[messages] get unread %s/%s: %v", projectID, userID, err)
		}
	}

	n, err := s.store.CountUnread(ctx, projectID, userID)
	if err != nil {
		return 0, err
	}
	if s.unread != nil {
		if err := s.unread.Set(ctx, projectID, userID, n); err != nil {
			log.Printf("[messages] backfill unread %s/%s: %v", projectID, userID, err)
		}
	}
	return n, nil
}

func (s *MessageService) loadAsParticipant(ctx context.Context, userID, projectID string) (*projects.Project, projects.Role, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	role, ok := p.RoleOf(userID)
	if !ok {
		return nil, "", projects.ErrNotParticipant
	}
	return p, role, nil
}
