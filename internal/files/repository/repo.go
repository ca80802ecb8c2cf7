package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundbridge/remote-projects-backend/internal/files/domain"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const fileCols = `
id::text, project_id::text, category, file_name, file_size, mime_type,
storage_key, uploaded_by::text, created_at`

func scanFile(row pgx.Row) (*domain.ProjectFile, error) {
	var f domain.ProjectFile
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.Category, &f.FileName, &f.FileSize, &f.MimeType,
		&f.StorageKey, &f.UploadedBy, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) Insert(ctx context.Context, f *domain.ProjectFile) (*domain.ProjectFile, error) {
	q := `
insert into project_files
  (id, project_id, category, file_name, file_size, mime_type, storage_key, uploaded_by)
values
  ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8::uuid)
returning ` + fileCols + `;`

	return scanFile(r.db.QueryRow(ctx, q,
		f.ID, f.ProjectID, f.Category, f.FileName, f.FileSize, f.MimeType,
		f.StorageKey, f.UploadedBy,
	))
}

func (r *Repo) Get(ctx context.Context, projectID, fileID string) (*domain.ProjectFile, error) {
	q := `
select ` + fileCols + `
from project_files
where project_id = $1::uuid and id = $2::uuid;`

	f, err := scanFile(r.db.QueryRow(ctx, q, projectID, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// List returns a project's files oldest-first; category "" means all.
func (r *Repo) List(ctx context.Context, projectID string, category domain.Category) ([]domain.ProjectFile, error) {
	q := `
select ` + fileCols + `
from project_files
where project_id = $1::uuid and ($2 = '' or category = $2)
order by created_at asc;`

	rows, err := r.db.Query(ctx, q, projectID, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ProjectFile, 0, 8)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, projectID, fileID string) (bool, error) {
	const q = `delete from project_files where project_id = $1::uuid and id = $2::uuid;`

	tag, err := r.db.Exec(ctx, q, projectID, fileID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) CountByCategory(ctx context.Context, projectID string, category domain.Category) (int, error) {
	const q = `select count(*) from project_files where project_id = $1::uuid and category = $2;`

	var n int
	if err := r.db.QueryRow(ctx, q, projectID, string(category)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByType returns per-category counts for a project's detail payload.
func (r *Repo) CountByType(ctx context.Context, projectID string) (map[string]int, error) {
	const q = `
select category, count(*)
from project_files
where project_id = $1::uuid
group by category;`

	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, rows.Err()
}
