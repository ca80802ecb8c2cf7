package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbridge/remote-projects-backend/internal/messages/domain"
	"github.com/soundbridge/remote-projects-backend/internal/messages/unread"
	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

const (
	custID = "11111111-1111-1111-1111-111111111111"
	vendID = "22222222-2222-2222-2222-222222222222"
	projID = "aaaaaaaa-0000-0000-0000-000000000000"
)

type fakeProjects struct {
	project *projects.Project
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (*projects.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, projects.ErrNotFound
	}
	cp := *f.project
	return &cp, nil
}

type fakeMsgStore struct {
	messages []domain.Message
	nextID   int
}

func (f *fakeMsgStore) Insert(_ context.Context, m *domain.Message) (*domain.Message, error) {
	f.nextID++
	cp := *m
	cp.ID = fmt.Sprintf("m-%d", f.nextID)
	cp.CreatedAt = time.Now()
	f.messages = append(f.messages, cp)
	return &cp, nil
}

func (f *fakeMsgStore) List(_ context.Context, projectID string, since *time.Time, limit, offset int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range f.messages {
		if m.ProjectID != projectID {
			continue
		}
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMsgStore) MarkRead(_ context.Context, projectID, readerID string, ids []string) (int, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	n := 0
	now := time.Now()
	for i := range f.messages {
		m := &f.messages[i]
		if m.ProjectID == projectID && wanted[m.ID] && m.SenderID != readerID && m.ReadAt == nil {
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeMsgStore) CountUnread(_ context.Context, projectID, readerID string) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ProjectID == projectID && m.SenderID != readerID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func testProject(status projects.Status) *projects.Project {
	return &projects.Project{
		ID:       projID,
		Status:   status,
		Customer: projects.RefByID(custID),
		Vendor:   projects.RefByID(vendID),
	}
}

func newService(t *testing.T, status projects.Status) (*MessageService, *fakeMsgStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &fakeMsgStore{}
	svc := NewMessageService(&fakeProjects{project: testProject(status)}, store, unread.NewCounter(client))
	return svc, store
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("participant sends, other party's badge increments", func(t *testing.T) {
		svc, store := newService(t, projects.StatusInProgress)

		m, err := svc.Send(ctx, custID, projID, "  how is the mix coming along?  ")
		require.NoError(t, err)
		assert.Equal(t, "how is the mix coming along?", m.Body)
		assert.Equal(t, projects.RoleCustomer, m.SenderRole)
		assert.Nil(t, m.ReadAt)
		assert.Len(t, store.messages, 1)

		n, err := svc.Unread(ctx, vendID, projID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// The sender's own badge stays at zero.
		n, err = svc.Unread(ctx, custID, projID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("whitespace only never reaches storage", func(t *testing.T) {
		svc, store := newService(t, projects.StatusInProgress)

		_, err := svc.Send(ctx, custID, projID, "   \n\t  ")
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
		assert.Empty(t, store.messages)
	})

	t.Run("closed project refuses new messages", func(t *testing.T) {
		svc, _ := newService(t, projects.StatusCompleted)

		_, err := svc.Send(ctx, vendID, projID, "one more thing")
		assert.ErrorIs(t, err, projects.ErrProjectClosed)
	})

	t.Run("stranger cannot post", func(t *testing.T) {
		svc, _ := newService(t, projects.StatusInProgress)

		_, err := svc.Send(ctx, "99999999-9999-9999-9999-999999999999", projID, "hi")
		assert.ErrorIs(t, err, projects.ErrNotParticipant)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps only the other party's unread messages", func(t *testing.T) {
		svc, _ := newService(t, projects.StatusInProgress)

		m1, err := svc.Send(ctx, vendID, projID, "first pass is up")
		require.NoError(t, err)
		m2, err := svc.Send(ctx, vendID, projID, "let me know")
		require.NoError(t, err)
		own, err := svc.Send(ctx, custID, projID, "will do")
		require.NoError(t, err)

		n, err := svc.MarkRead(ctx, custID, projID, []string{m1.ID, m2.ID, own.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n, "own message does not count")

		// Re-reading the same ids is a no-op.
		n, err = svc.MarkRead(ctx, custID, projID, []string{m1.ID, m2.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		// The sender's copy keeps readAt set.
		msgs, err := svc.List(ctx, vendID, projID, nil, 50, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.NotNil(t, msgs[0].ReadAt)

		// Badge cleared for the reader.
		unreadCount, err := svc.Unread(ctx, custID, projID)
		require.NoError(t, err)
		assert.Equal(t, 0, unreadCount)
	})

	t.Run("empty batch marks nothing", func(t *testing.T) {
		svc, _ := newService(t, projects.StatusInProgress)

		n, err := svc.MarkRead(ctx, custID, projID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestUnreadFallback(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, projects.StatusInProgress)

	// Rows exist without any counter having been touched.
	store.messages = append(store.messages, domain.Message{
		ID: "seed-1", ProjectID: projID, SenderID: vendID, SenderRole: projects.RoleVendor,
		Body: "seeded", CreatedAt: time.Now(),
	})

	n, err := svc.Unread(ctx, custID, projID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second call reads the backfilled counter and agrees.
	n, err = svc.Unread(ctx, custID, projID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListSince(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, projects.StatusInProgress)

	_, err := svc.Send(ctx, custID, projID, "old message")
	require.NoError(t, err)

	cut := time.Now()
	time.Sleep(5 * time.Millisecond)

	_, err = svc.Send(ctx, vendID, projID, "new message")
	require.NoError(t, err)

	msgs, err := svc.List(ctx, custID, projID, &cut, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "new message", msgs[0].Body)
}
