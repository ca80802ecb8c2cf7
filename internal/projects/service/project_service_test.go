package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbridge/remote-projects-backend/internal/projects/domain"
	"github.com/soundbridge/remote-projects-backend/internal/projects/repository"
)

// fakeStore keeps one project in memory and mirrors the repository's guarded
// updates: a transition only applies when the source status still matches.
type fakeStore struct {
	project *domain.Project
	calls   []string
	created *repository.CreateProject
}

func newFakeStore(p *domain.Project) *fakeStore {
	return &fakeStore{project: p}
}

func (f *fakeStore) Create(_ context.Context, in repository.CreateProject) (*domain.Project, error) {
	f.calls = append(f.calls, "create")
	f.created = &in
	now := time.Now()
	return &domain.Project{
		ID:                "new-project",
		PublicID:          "rpj-00001-0001",
		Title:             in.Title,
		Brief:             in.Brief,
		ReferenceLinks:    in.ReferenceLinks,
		Price:             in.Price,
		RevisionsIncluded: in.RevisionsIncluded,
		Status:            domain.StatusRequested,
		Customer:          domain.RefByID(in.CustomerID),
		Vendor:            domain.RefByID(in.VendorID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *f.project
	return &cp, nil
}

func (f *fakeStore) GetDetail(ctx context.Context, id string) (*domain.Project, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStore) List(_ context.Context, _ repository.ListFilter) ([]domain.Project, error) {
	if f.project == nil {
		return nil, nil
	}
	return []domain.Project{*f.project}, nil
}

func (f *fakeStore) guarded(name string, from []domain.Status, to domain.Status, mut func(*domain.Project)) (*domain.Project, error) {
	f.calls = append(f.calls, name)
	ok := false
	for _, s := range from {
		if f.project != nil && f.project.Status == s {
			ok = true
		}
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	f.project.Status = to
	if mut != nil {
		mut(f.project)
	}
	cp := *f.project
	return &cp, nil
}

func (f *fakeStore) Accept(_ context.Context, _ string) (*domain.Project, error) {
	return f.guarded("accept", []domain.Status{domain.StatusRequested}, domain.StatusAccepted, nil)
}

func (f *fakeStore) Decline(_ context.Context, _ string, reason *string) (*domain.Project, error) {
	return f.guarded("decline", []domain.Status{domain.StatusRequested}, domain.StatusDeclined, func(p *domain.Project) {
		p.DeclineReason = reason
	})
}

func (f *fakeStore) Start(_ context.Context, _ string) (*domain.Project, error) {
	return f.guarded("start", []domain.Status{domain.StatusAccepted}, domain.StatusInProgress, nil)
}

func (f *fakeStore) Deliver(_ context.Context, _ string, notes *string) (*domain.Project, error) {
	return f.guarded("deliver", []domain.Status{domain.StatusInProgress, domain.StatusRevisionRequested}, domain.StatusDelivered, func(p *domain.Project) {
		p.DeliveryNotes = notes
	})
}

func (f *fakeStore) RequestRevision(_ context.Context, _ string, feedback string) (*domain.Project, error) {
	if f.project != nil && f.project.RevisionsUsed >= f.project.RevisionsIncluded {
		f.calls = append(f.calls, "request_revision")
		return nil, domain.ErrInvalidTransition
	}
	return f.guarded("request_revision", []domain.Status{domain.StatusDelivered}, domain.StatusRevisionRequested, func(p *domain.Project) {
		p.RevisionsUsed++
		p.RevisionFeedback = &feedback
	})
}

func (f *fakeStore) Complete(_ context.Context, _ string) (*domain.Project, error) {
	return f.guarded("complete", []domain.Status{domain.StatusDelivered}, domain.StatusCompleted, nil)
}

func (f *fakeStore) Cancel(_ context.Context, _ string, cancelledBy string) (*domain.Project, error) {
	return f.guarded("cancel", []domain.Status{domain.StatusRequested, domain.StatusAccepted}, domain.StatusCancelled, func(p *domain.Project) {
		p.CancelledBy = &cancelledBy
	})
}

func (f *fakeStore) ListDeliveredBefore(_ context.Context, _ int) ([]string, error) {
	if f.project != nil && f.project.Status == domain.StatusDelivered {
		return []string{f.project.ID}, nil
	}
	return nil, nil
}

const (
	custID = "11111111-1111-1111-1111-111111111111"
	vendID = "22222222-2222-2222-2222-222222222222"
)

func testProject(status domain.Status, used, included int) *domain.Project {
	return &domain.Project{
		ID:                "p1",
		PublicID:          "rpj-12345-6789",
		Title:             "Mix my EP",
		Status:            status,
		RevisionsUsed:     used,
		RevisionsIncluded: included,
		Customer:          domain.RefByID(custID),
		Vendor:            domain.RefByID(vendID),
	}
}

func TestDeclineFromRequested(t *testing.T) {
	t.Run("empty reason is allowed", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusRequested, 0, 2))
		svc := NewProjectService(store)

		empty := "   "
		p, err := svc.Decline(context.Background(), vendID, "p1", &empty)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDeclined, p.Status)
		assert.Nil(t, p.DeclineReason)
	})

	t.Run("reason is recorded when given", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusRequested, 0, 2))
		svc := NewProjectService(store)

		reason := "fully booked this month"
		p, err := svc.Decline(context.Background(), vendID, "p1", &reason)
		require.NoError(t, err)
		require.NotNil(t, p.DeclineReason)
		assert.Equal(t, reason, *p.DeclineReason)
	})

	t.Run("customer may not decline", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusRequested, 0, 2))
		svc := NewProjectService(store)

		_, err := svc.Decline(context.Background(), custID, "p1", nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.NotContains(t, store.calls, "decline")
	})
}

func TestRequestRevision(t *testing.T) {
	t.Run("empty feedback rejected before storage", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 1, 3))
		svc := NewProjectService(store)

		_, err := svc.RequestRevision(context.Background(), custID, "p1", "  \n\t ")
		assert.ErrorIs(t, err, domain.ErrFeedbackRequired)
		assert.Empty(t, store.calls, "no storage call may be issued")
	})

	t.Run("increments revisions used", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 1, 3))
		svc := NewProjectService(store)

		p, err := svc.RequestRevision(context.Background(), custID, "p1", "vocal too quiet")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRevisionRequested, p.Status)
		assert.Equal(t, 2, p.RevisionsUsed)
	})

	t.Run("rejected once budget exhausted", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 3, 3))
		svc := NewProjectService(store)

		_, err := svc.RequestRevision(context.Background(), custID, "p1", "one more pass")
		assert.ErrorIs(t, err, domain.ErrRevisionsExhausted)
		assert.Empty(t, store.calls)
	})

	t.Run("vendor may not request revision", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 0, 3))
		svc := NewProjectService(store)

		_, err := svc.RequestRevision(context.Background(), vendID, "p1", "redo")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeliverLoop(t *testing.T) {
	store := newFakeStore(testProject(domain.StatusInProgress, 0, 2))
	svc := NewProjectService(store)
	ctx := context.Background()

	notes := "v1 attached"
	p, err := svc.Deliver(ctx, vendID, "p1", &notes)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, p.Status)

	p, err = svc.RequestRevision(ctx, custID, "p1", "more low end")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevisionRequested, p.Status)

	// Re-delivery reuses the same deliver operation.
	p, err = svc.Deliver(ctx, vendID, "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, p.Status)

	p, err = svc.Complete(ctx, custID, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
}

func TestTransitionGuards(t *testing.T) {
	t.Run("wrong status is a conflict", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusInProgress, 0, 2))
		svc := NewProjectService(store)

		_, err := svc.Accept(context.Background(), vendID, "p1")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("stranger is not a participant", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusRequested, 0, 2))
		svc := NewProjectService(store)

		_, err := svc.Accept(context.Background(), "33333333-3333-3333-3333-333333333333", "p1")
		assert.ErrorIs(t, err, domain.ErrNotParticipant)
	})

	t.Run("missing project", func(t *testing.T) {
		store := newFakeStore(nil)
		svc := NewProjectService(store)

		_, err := svc.Accept(context.Background(), vendID, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cancel records who cancelled", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusAccepted, 0, 2))
		svc := NewProjectService(store)

		p, err := svc.Cancel(context.Background(), custID, "p1")
		require.NoError(t, err)
		require.NotNil(t, p.CancelledBy)
		assert.Equal(t, custID, *p.CancelledBy)
	})

	t.Run("no cancel after delivery", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 0, 2))
		svc := NewProjectService(store)

		_, err := svc.Cancel(context.Background(), custID, "p1")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestCreateValidation(t *testing.T) {
	svc := NewProjectService(newFakeStore(nil))
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		store := newFakeStore(nil)
		svc := NewProjectService(store)
		p, err := svc.Create(ctx, custID, CreateInput{
			VendorID:          vendID,
			Title:             "  Master single  ",
			Brief:             "Two-track master for streaming",
			ReferenceLinks:    []string{"https://example.com/ref"},
			Price:             450,
			RevisionsIncluded: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, "Master single", p.Title)
		assert.Equal(t, domain.StatusRequested, p.Status)
		require.NotNil(t, store.created)
		assert.Equal(t, int64(450), store.created.Price)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		_, err := svc.Create(ctx, custID, CreateInput{VendorID: vendID, Title: "   "})
		assert.Error(t, err)
	})

	t.Run("rejects self-commission", func(t *testing.T) {
		_, err := svc.Create(ctx, custID, CreateInput{VendorID: custID, Title: "x"})
		assert.Error(t, err)
	})

	t.Run("rejects non-http reference link", func(t *testing.T) {
		_, err := svc.Create(ctx, custID, CreateInput{
			VendorID:       vendID,
			Title:          "x",
			ReferenceLinks: []string{"ftp://example.com/a"},
		})
		assert.Error(t, err)
	})

	t.Run("rejects negative revision budget", func(t *testing.T) {
		_, err := svc.Create(ctx, custID, CreateInput{VendorID: vendID, Title: "x", RevisionsIncluded: -1})
		assert.Error(t, err)
	})
}

func TestGetDetail(t *testing.T) {
	t.Run("returns role and permitted actions", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 1, 3))
		svc := NewProjectService(store)

		d, err := svc.Get(context.Background(), custID, "p1")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleCustomer, d.Role)
		assert.ElementsMatch(t, []domain.Action{domain.ActionRequestRevision, domain.ActionComplete}, d.Actions)
	})

	t.Run("stranger gets no detail", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 1, 3))
		svc := NewProjectService(store)

		_, err := svc.Get(context.Background(), "33333333-3333-3333-3333-333333333333", "p1")
		assert.ErrorIs(t, err, domain.ErrNotParticipant)
	})
}

func TestAutoCompleteDelivered(t *testing.T) {
	t.Run("completes stale deliveries", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusDelivered, 0, 2))
		svc := NewProjectService(store)

		n := svc.AutoCompleteDelivered(context.Background(), 7)
		assert.Equal(t, 1, n)
		assert.Equal(t, domain.StatusCompleted, store.project.Status)
	})

	t.Run("nothing to do", func(t *testing.T) {
		store := newFakeStore(testProject(domain.StatusInProgress, 0, 2))
		svc := NewProjectService(store)

		assert.Equal(t, 0, svc.AutoCompleteDelivered(context.Background(), 7))
	})
}
