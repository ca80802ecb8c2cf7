package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/soundbridge/remote-projects-backend/internal/projects/domain"
	"github.com/soundbridge/remote-projects-backend/internal/projects/repository"
)

// Store is the persistence seam for the lifecycle service. The pgx repository
// implements it; tests substitute a fixture implementation.
type Store interface {
	Create(ctx context.Context, in repository.CreateProject) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetDetail(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, f repository.ListFilter) ([]domain.Project, error)

	Accept(ctx context.Context, id string) (*domain.Project, error)
	Decline(ctx context.Context, id string, reason *string) (*domain.Project, error)
	Start(ctx context.Context, id string) (*domain.Project, error)
	Deliver(ctx context.Context, id string, notes *string) (*domain.Project, error)
	RequestRevision(ctx context.Context, id, feedback string) (*domain.Project, error)
	Complete(ctx context.Context, id string) (*domain.Project, error)
	Cancel(ctx context.Context, id, cancelledBy string) (*domain.Project, error)

	ListDeliveredBefore(ctx context.Context, days int) ([]string, error)
}

// ProjectService owns the lifecycle state machine: every transition is checked
// against (status, role) before it reaches storage, and storage re-checks the
// source status atomically.
type ProjectService struct {
	store Store
}

func NewProjectService(store Store) *ProjectService {
	return &ProjectService{store: store}
}

type CreateInput struct {
	VendorID          string
	Title             string
	Brief             string
	ReferenceLinks    []string
	Price             int64
	Deadline          *time.Time
	EstimatedDays     *int
	RevisionsIncluded int
}

func (s *ProjectService) Create(ctx context.Context, customerID string, in CreateInput) (*domain.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Brief = strings.TrimSpace(in.Brief)

	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if in.VendorID == "" {
		return nil, fmt.Errorf("vendor is required")
	}
	if in.VendorID == customerID {
		return nil, fmt.Errorf("customer and vendor must differ")
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if in.RevisionsIncluded < 0 {
		return nil, fmt.Errorf("revisions included must not be negative")
	}
	if in.EstimatedDays != nil && *in.EstimatedDays <= 0 {
		return nil, fmt.Errorf("estimated days must be positive")
	}
	for _, link := range in.ReferenceLinks {
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("invalid reference link: %s", link)
		}
	}

	var deadline *string
	if in.Deadline != nil {
		d := in.Deadline.UTC().Format(time.RFC3339)
		deadline = &d
	}

	return s.store.Create(ctx, repository.CreateProject{
		CustomerID:        customerID,
		VendorID:          in.VendorID,
		Title:             in.Title,
		Brief:             in.Brief,
		ReferenceLinks:    in.ReferenceLinks,
		Price:             in.Price,
		Deadline:          deadline,
		EstimatedDays:     in.EstimatedDays,
		RevisionsIncluded: in.RevisionsIncluded,
	})
}

// Detail is what the detail endpoint serves: the hydrated project, the
// caller's role and the actions legal for (status, role).
type Detail struct {
	Project *domain.Project
	Role    domain.Role
	Actions []domain.Action
}

func (s *ProjectService) Get(ctx context.Context, userID, id string) (*Detail, error) {
	p, err := s.store.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	role, ok := p.RoleOf(userID)
	if !ok {
		return nil, domain.ErrNotParticipant
	}

	return &Detail{
		Project: p,
		Role:    role,
		Actions: domain.PermittedActions(p, role),
	}, nil
}

func (s *ProjectService) List(ctx context.Context, userID string, role domain.Role, status domain.Status, limit, offset int) ([]domain.Project, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status filter: %s", status)
	}
	return s.store.List(ctx, repository.ListFilter{
		UserID: userID,
		Role:   role,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *ProjectService) Accept(ctx context.Context, userID, id string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionAccept); err != nil {
		return nil, err
	}
	return s.apply(id, domain.ActionAccept, func() (*domain.Project, error) {
		return s.store.Accept(ctx, id)
	})
}

func (s *ProjectService) Decline(ctx context.Context, userID, id string, reason *string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionDecline); err != nil {
		return nil, err
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}
	return s.apply(id, domain.ActionDecline, func() (*domain.Project, error) {
		return s.store.Decline(ctx, id, reason)
	})
}

func (s *ProjectService) Start(ctx context.Context, userID, id string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionStart); err != nil {
		return nil, err
	}
	return s.apply(id, domain.ActionStart, func() (*domain.Project, error) {
		return s.store.Start(ctx, id)
	})
}

func (s *ProjectService) Deliver(ctx context.Context, userID, id string, notes *string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionDeliver); err != nil {
		return nil, err
	}
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			notes = &trimmed
		}
	}
	return s.apply(id, domain.ActionDeliver, func() (*domain.Project, error) {
		return s.store.Deliver(ctx, id, notes)
	})
}

func (s *ProjectService) RequestRevision(ctx context.Context, userID, id, feedback string) (*domain.Project, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, domain.ErrFeedbackRequired
	}

	p, err := s.loadForAction(ctx, userID, id, domain.ActionRequestRevision)
	if err != nil {
		return nil, err
	}
	if p.RevisionsLeft() == 0 {
		return nil, domain.ErrRevisionsExhausted
	}

	return s.apply(id, domain.ActionRequestRevision, func() (*domain.Project, error) {
		return s.store.RequestRevision(ctx, id, feedback)
	})
}

func (s *ProjectService) Complete(ctx context.Context, userID, id string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionComplete); err != nil {
		return nil, err
	}
	return s.apply(id, domain.ActionComplete, func() (*domain.Project, error) {
		return s.store.Complete(ctx, id)
	})
}

func (s *ProjectService) Cancel(ctx context.Context, userID, id string) (*domain.Project, error) {
	if err := s.authorize(ctx, userID, id, domain.ActionCancel); err != nil {
		return nil, err
	}
	return s.apply(id, domain.ActionCancel, func() (*domain.Project, error) {
		return s.store.Cancel(ctx, id, userID)
	})
}

// AutoCompleteDelivered closes out projects left in delivered beyond the given
// window. Used by the janitor; failures are logged per project and do not stop
// the sweep.
func (s *ProjectService) AutoCompleteDelivered(ctx context.Context, olderThanDays int) int {
	ids, err := s.store.ListDeliveredBefore(ctx, olderThanDays)
	if err != nil {
		log.Printf("[projects] auto-complete sweep failed: %v", err)
		return 0
	}

	completed := 0
	for _, id := range ids {
		if _, err := s.store.Complete(ctx, id); err != nil {
			log.Printf("[projects] auto-complete %s: %v", id, err)
			continue
		}
		log.Printf("[projects] auto-completed %s after %d days in delivered", id, olderThanDays)
		completed++
	}
	return completed
}

func (s *ProjectService) authorize(ctx context.Context, userID, id string, a domain.Action) error {
	_, err := s.loadForAction(ctx, userID, id, a)
	return err
}

// loadForAction resolves the caller's role and checks the action against the
// current status. Wrong status and wrong role are reported as distinct errors
// so handlers can answer 409 vs 403.
func (s *ProjectService) loadForAction(ctx context.Context, userID, id string, a domain.Action) (*domain.Project, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role, ok := p.RoleOf(userID)
	if !ok {
		return nil, domain.ErrNotParticipant
	}

	if !domain.ActionAllowedFrom(p.Status, a) {
		return nil, domain.ErrInvalidTransition
	}
	if by, _ := domain.ActionRole(a); by != "" && by != role {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// apply runs the guarded storage update and logs the outcome. The update can
// still report an invalid transition if the row changed between the check and
// the write.
func (s *ProjectService) apply(id string, a domain.Action, fn func() (*domain.Project, error)) (*domain.Project, error) {
	p, err := fn()
	if err != nil {
		log.Printf("[projects] %s %s failed: %v", a, id, err)
		return nil, err
	}
	log.Printf("[projects] %s %s -> %s", a, id, p.Status)
	return p, nil
}
