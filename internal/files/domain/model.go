package domain

import (
	"errors"
	"time"

	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

// Category partitions a project's files by who produces them and when.
type Category string

const (
	CategorySource      Category = "source"      // customer's input material
	CategoryDeliverable Category = "deliverable" // vendor's output
	CategoryRevision    Category = "revision"    // vendor's reworked output
)

func (c Category) Valid() bool {
	switch c {
	case CategorySource, CategoryDeliverable, CategoryRevision:
		return true
	}
	return false
}

// ProjectFile is immutable after registration: created on upload, removed on
// delete, never updated in place.
type ProjectFile struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Category   Category  `json:"category"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	StorageKey string    `json:"-"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrFileNotFound   = errors.New("file not found")
	ErrSessionExpired = errors.New("upload session expired or unknown")
	ErrNotPermitted   = errors.New("file operation not permitted in current status")
	ErrTooManyFiles   = errors.New("batch exceeds the file limit for this category")
)

// CanManage reports whether role may add or remove files of the given category
// while the project sits in status. Mirrors the lifecycle: customers feed in
// source material until work is underway, vendors publish deliverables and
// revisions while working.
func CanManage(role projects.Role, status projects.Status, c Category) bool {
	if status.Terminal() {
		return false
	}
	switch c {
	case CategorySource:
		if role != projects.RoleCustomer {
			return false
		}
		return status == projects.StatusRequested ||
			status == projects.StatusAccepted ||
			status == projects.StatusInProgress
	case CategoryDeliverable, CategoryRevision:
		if role != projects.RoleVendor {
			return false
		}
		return status == projects.StatusInProgress ||
			status == projects.StatusRevisionRequested
	}
	return false
}
