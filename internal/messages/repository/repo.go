package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundbridge/remote-projects-backend/internal/messages/domain"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const msgCols = `id::text, project_id::text, sender_id::text, sender_role, body, created_at, read_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.SenderRole, &m.Body, &m.CreatedAt, &m.ReadAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Insert(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	q := `
insert into project_messages (project_id, sender_id, sender_role, body)
values ($1::uuid, $2::uuid, $3, $4)
returning ` + msgCols + `;`

	return scanMessage(r.db.QueryRow(ctx, q, m.ProjectID, m.SenderID, m.SenderRole, m.Body))
}

// List returns messages oldest first so clients can append as they page.
// A non-nil since narrows to messages created after it, which lets pollers
// fetch only what is new.
func (r *Repo) List(ctx context.Context, projectID string, since *time.Time, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
select ` + msgCols + `
from project_messages
where project_id = $1::uuid
  and ($2::timestamptz is null or created_at > $2)
order by created_at asc, id asc
limit $3 offset $4;`

	rows, err := r.db.Query(ctx, q, projectID, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkRead stamps read_at on the given messages. Only messages sent by the
// other party count; a reader cannot mark their own messages and re-reading
// is a no-op. Returns how many rows were stamped.
func (r *Repo) MarkRead(ctx context.Context, projectID, readerID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	q := `
update project_messages
set read_at = now()
where project_id = $1::uuid
  and id = any($2::uuid[])
  and sender_id <> $3::uuid
  and read_at is null;`

	tag, err := r.db.Exec(ctx, q, projectID, messageIDs, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountUnread is the durable fallback behind the Redis counter.
func (r *Repo) CountUnread(ctx context.Context, projectID, readerID string) (int, error) {
	q := `
select count(*)
from project_messages
where project_id = $1::uuid
  and sender_id <> $2::uuid
  and read_at is null;`

	var n int
	if err := r.db.QueryRow(ctx, q, projectID, readerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
