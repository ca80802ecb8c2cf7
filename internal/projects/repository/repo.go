package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

// Repo provides persistence for the project aggregate. All status transitions
// are guarded in SQL (WHERE status = ...) so a concurrent transition can never
// double-apply; the revision counter is incremented in the same statement that
// checks the budget.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const projCols = `
id::text, public_id, title, brief, reference_links,
price, deposit_paid, final_paid,
deadline, estimated_days,
revisions_included, revisions_used,
status, customer_id::text, vendor_id::text,
decline_reason, delivery_notes, revision_feedback, cancelled_by::text,
created_at, updated_at,
accepted_at, started_at, delivered_at, completed_at, cancelled_at, declined_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p                    domain.Project
		customerID, vendorID string
	)
	err := row.Scan(
		&p.ID, &p.PublicID, &p.Title, &p.Brief, &p.ReferenceLinks,
		&p.Price, &p.DepositPaid, &p.FinalPaid,
		&p.Deadline, &p.EstimatedDays,
		&p.RevisionsIncluded, &p.RevisionsUsed,
		&p.Status, &customerID, &vendorID,
		&p.DeclineReason, &p.DeliveryNotes, &p.RevisionFeedback, &p.CancelledBy,
		&p.CreatedAt, &p.UpdatedAt,
		&p.AcceptedAt, &p.StartedAt, &p.DeliveredAt, &p.CompletedAt, &p.CancelledAt, &p.DeclinedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Customer = domain.RefByID(customerID)
	p.Vendor = domain.RefByID(vendorID)
	return &p, nil
}

type CreateProject struct {
	CustomerID        string
	VendorID          string
	Title             string
	Brief             string
	ReferenceLinks    []string
	Price             int64
	Deadline          *string // RFC 3339, passed through to timestamptz
	EstimatedDays     *int
	RevisionsIncluded int
}

func (r *Repo) Create(ctx context.Context, in CreateProject) (*domain.Project, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title required")
	}
	if in.CustomerID == "" || in.VendorID == "" {
		return nil, fmt.Errorf("customer and vendor required")
	}

	for i := 0; i < 5; i++ {
		publicID, err := NewPublicID("rpj")
		if err != nil {
			return nil, err
		}

		q := `
insert into remote_projects
  (public_id, customer_id, vendor_id, title, brief, reference_links,
   price, deadline, estimated_days, revisions_included, status)
values
  ($1, $2::uuid, $3::uuid, $4, $5, $6,
   $7, $8::timestamptz, $9, $10, 'requested')
returning ` + projCols + `;`

		p, err := scanProject(r.db.QueryRow(ctx, q,
			publicID, in.CustomerID, in.VendorID, in.Title, in.Brief, in.ReferenceLinks,
			in.Price, in.Deadline, in.EstimatedDays, in.RevisionsIncluded,
		))
		if err == nil {
			return p, nil
		}

		// unique violation on public_id → retry
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique project id")
}

func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	q := `select ` + projCols + ` from remote_projects where id = $1::uuid;`

	p, err := scanProject(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetDetail loads a project with both parties hydrated to inline identities.
func (r *Repo) GetDetail(ctx context.Context, id string) (*domain.Project, error) {
	const q = `
select
  p.id::text, p.public_id, p.title, p.brief, p.reference_links,
  p.price, p.deposit_paid, p.final_paid,
  p.deadline, p.estimated_days,
  p.revisions_included, p.revisions_used,
  p.status, p.customer_id::text, p.vendor_id::text,
  p.decline_reason, p.delivery_notes, p.revision_feedback, p.cancelled_by::text,
  p.created_at, p.updated_at,
  p.accepted_at, p.started_at, p.delivered_at, p.completed_at, p.cancelled_at, p.declined_at,
  coalesce(cu.display_name, ''), coalesce(cu.email, ''),
  coalesce(vu.display_name, ''), coalesce(vu.email, '')
from remote_projects p
join users cu on cu.id = p.customer_id
join users vu on vu.id = p.vendor_id
where p.id = $1::uuid;`

	var (
		p                    domain.Project
		customerID, vendorID string
		custName, custEmail  string
		vendName, vendEmail  string
	)
	err := r.db.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.PublicID, &p.Title, &p.Brief, &p.ReferenceLinks,
		&p.Price, &p.DepositPaid, &p.FinalPaid,
		&p.Deadline, &p.EstimatedDays,
		&p.RevisionsIncluded, &p.RevisionsUsed,
		&p.Status, &customerID, &vendorID,
		&p.DeclineReason, &p.DeliveryNotes, &p.RevisionFeedback, &p.CancelledBy,
		&p.CreatedAt, &p.UpdatedAt,
		&p.AcceptedAt, &p.StartedAt, &p.DeliveredAt, &p.CompletedAt, &p.CancelledAt, &p.DeclinedAt,
		&custName, &custEmail, &vendName, &vendEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	p.Customer = domain.RefInline(domain.Party{ID: customerID, DisplayName: custName, Email: custEmail})
	p.Vendor = domain.RefInline(domain.Party{ID: vendorID, DisplayName: vendName, Email: vendEmail})
	return &p, nil
}

type ListFilter struct {
	UserID string
	Role   domain.Role // empty: either side
	Status domain.Status
	Limit  int
	Offset int
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]domain.Project, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	q := `
select ` + projCols + `
from remote_projects
where ($1::uuid = customer_id or $1::uuid = vendor_id)
  and ($2 = '' or ($2 = 'customer' and customer_id = $1::uuid) or ($2 = 'vendor' and vendor_id = $1::uuid))
  and ($3 = '' or status = $3)
order by created_at desc
limit $4 offset $5;`

	rows, err := r.db.Query(ctx, q, f.UserID, string(f.Role), string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Transition statements. Each one re-checks the source status in the WHERE
// clause; zero rows means the project raced into another state (or vanished),
// which the service reports as an invalid transition.

func (r *Repo) Accept(ctx context.Context, id string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'accepted', accepted_at = now(), updated_at = now()
where id = $1::uuid and status = 'requested'
returning ` + projCols + `;`
	return r.transition(ctx, q, id)
}

func (r *Repo) Decline(ctx context.Context, id string, reason *string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'declined', decline_reason = $2, declined_at = now(), updated_at = now()
where id = $1::uuid and status = 'requested'
returning ` + projCols + `;`
	return r.transition(ctx, q, id, reason)
}

func (r *Repo) Start(ctx context.Context, id string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'in_progress', started_at = now(), updated_at = now()
where id = $1::uuid and status = 'accepted'
returning ` + projCols + `;`
	return r.transition(ctx, q, id)
}

func (r *Repo) Deliver(ctx context.Context, id string, notes *string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'delivered', delivery_notes = coalesce($2, delivery_notes),
    delivered_at = now(), updated_at = now()
where id = $1::uuid and status in ('in_progress', 'revision_requested')
returning ` + projCols + `;`
	return r.transition(ctx, q, id, notes)
}

func (r *Repo) RequestRevision(ctx context.Context, id, feedback string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'revision_requested', revisions_used = revisions_used + 1,
    revision_feedback = $2, updated_at = now()
where id = $1::uuid and status = 'delivered' and revisions_used < revisions_included
returning ` + projCols + `;`
	return r.transition(ctx, q, id, feedback)
}

func (r *Repo) Complete(ctx context.Context, id string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'completed', completed_at = now(), updated_at = now()
where id = $1::uuid and status = 'delivered'
returning ` + projCols + `;`
	return r.transition(ctx, q, id)
}

func (r *Repo) Cancel(ctx context.Context, id, cancelledBy string) (*domain.Project, error) {
	q := `
update remote_projects
set status = 'cancelled', cancelled_by = $2::uuid, cancelled_at = now(), updated_at = now()
where id = $1::uuid and status in ('requested', 'accepted')
returning ` + projCols + `;`
	return r.transition(ctx, q, id, cancelledBy)
}

// ListDeliveredBefore returns ids of projects sitting in delivered longer than
// the given interval, for the auto-complete sweep.
func (r *Repo) ListDeliveredBefore(ctx context.Context, days int) ([]string, error) {
	const q = `
select id::text
from remote_projects
where status = 'delivered' and delivered_at < now() - make_interval(days => $1);`

	rows, err := r.db.Query(ctx, q, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) transition(ctx context.Context, q, id string, args ...any) (*domain.Project, error) {
	all := append([]any{id}, args...)
	p, err := scanProject(r.db.QueryRow(ctx, q, all...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}
	return p, nil
}
