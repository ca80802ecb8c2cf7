package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/soundbridge/remote-projects-backend/internal/files/domain"
	"github.com/soundbridge/remote-projects-backend/internal/files/uploadsession"
	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

// ProjectLoader is the slice of the projects repository this service needs.
type ProjectLoader interface {
	GetByID(ctx context.Context, id string) (*projects.Project, error)
}

type Store interface {
	Insert(ctx context.Context, f *domain.ProjectFile) (*domain.ProjectFile, error)
	Get(ctx context.Context, projectID, fileID string) (*domain.ProjectFile, error)
	List(ctx context.Context, projectID string, category domain.Category) ([]domain.ProjectFile, error)
	Delete(ctx context.Context, projectID, fileID string) (bool, error)
	CountByCategory(ctx context.Context, projectID string, category domain.Category) (int, error)
}

type Sessions interface {
	Create(ctx context.Context, s *uploadsession.Session) error
	Get(ctx context.Context, fileID string) (*uploadsession.Session, error)
	Delete(ctx context.Context, fileID string) error
}

type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key, fileName string) (string, error)
	Delete(ctx context.Context, key string) error
}

// FileService runs the two-step upload flow and gates every mutation on the
// project's (status, role) pair. Reads are open to both participants for the
// project's whole life, including after it closes.
type FileService struct {
	projects ProjectLoader
	store    Store
	sessions Sessions
	objects  ObjectStore
	policy   domain.Policy
}

func NewFileService(p ProjectLoader, store Store, sessions Sessions, objects ObjectStore, policy domain.Policy) *FileService {
	return &FileService{projects: p, store: store, sessions: sessions, objects: objects, policy: policy}
}

// UploadGrant is one accepted file's ticket: a presigned PUT URL plus the id
// to register once the upload finishes.
type UploadGrant struct {
	FileID     string `json:"file_id"`
	FileName   string `json:"file_name"`
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

// RequestUpload validates a batch and opens one upload session per accepted
// file. Invalid files come back as rejections without blocking the rest; a
// batch that would overflow the category's file cap fails as a whole.
func (s *FileService) RequestUpload(ctx context.Context, userID, projectID string, category domain.Category, batch []domain.FileInfo) ([]UploadGrant, []domain.Rejection, error) {
	if !category.Valid() {
		return nil, nil, fmt.Errorf("unknown file category: %s", category)
	}

	if err := s.authorizeWrite(ctx, userID, projectID, category); err != nil {
		return nil, nil, err
	}

	existing, err := s.store.CountByCategory(ctx, projectID, category)
	if err != nil {
		return nil, nil, err
	}

	accepted, rejected, err := s.policy.ValidateBatch(existing, batch)
	if err != nil {
		return nil, nil, err
	}

	grants := make([]UploadGrant, 0, len(accepted))
	for _, f := range accepted {
		fileID := uuid.NewString()
		key := storageKey(projectID, category, fileID, f.Name)

		mime := f.MimeType
		if mime == "" {
			mime = "application/octet-stream"
		}

		url, err := s.objects.PresignUpload(ctx, key, mime)
		if err != nil {
			return nil, nil, err
		}

		if err := s.sessions.Create(ctx, &uploadsession.Session{
			FileID:     fileID,
			ProjectID:  projectID,
			Category:   string(category),
			FileName:   f.Name,
			FileSize:   f.Size,
			MimeType:   mime,
			StorageKey: key,
			UploadedBy: userID,
		}); err != nil {
			return nil, nil, err
		}

		grants = append(grants, UploadGrant{FileID: fileID, FileName: f.Name, UploadURL: url, StorageKey: key})
	}

	log.Printf("[files] %s granted %d uploads (%d rejected) for %s/%s",
		userID, len(grants), len(rejected), projectID, category)
	return grants, rejected, nil
}

// Register persists a finished upload. The session is the source of truth for
// the file's metadata; the client only names the id it was granted.
func (s *FileService) Register(ctx context.Context, userID, projectID, fileID string) (*domain.ProjectFile, error) {
	sess, err := s.sessions.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, uploadsession.ErrNotFound) {
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	if sess.ProjectID != projectID || sess.UploadedBy != userID {
		return nil, domain.ErrSessionExpired
	}

	f, err := s.store.Insert(ctx, &domain.ProjectFile{
		ID:         sess.FileID,
		ProjectID:  sess.ProjectID,
		Category:   domain.Category(sess.Category),
		FileName:   sess.FileName,
		FileSize:   sess.FileSize,
		MimeType:   sess.MimeType,
		StorageKey: sess.StorageKey,
		UploadedBy: sess.UploadedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, fileID); err != nil {
		log.Printf("[files] drop session %s: %v", fileID, err)
	}

	log.Printf("[files] registered %s (%s, %d bytes) on %s", f.FileName, f.Category, f.FileSize, projectID)
	return f, nil
}

func (s *FileService) List(ctx context.Context, userID, projectID string, category domain.Category) ([]domain.ProjectFile, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("unknown file category: %s", category)
	}
	if _, err := s.loadAsParticipant(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, projectID, category)
}

// DownloadURL resolves a short-lived URL at request time. Both participants
// may download any category at any point in the lifecycle.
func (s *FileService) DownloadURL(ctx context.Context, userID, projectID, fileID string) (string, error) {
	if _, err := s.loadAsParticipant(ctx, userID, projectID); err != nil {
		return "", err
	}

	f, err := s.store.Get(ctx, projectID, fileID)
	if err != nil {
		return "", err
	}

	return s.objects.PresignDownload(ctx, f.StorageKey, f.FileName)
}

// Delete removes one file. Permission matches upload: whoever may write the
// category in the current status may also remove from it.
func (s *FileService) Delete(ctx context.Context, userID, projectID, fileID string) error {
	f, err := s.store.Get(ctx, projectID, fileID)
	if err != nil {
		return err
	}

	if err := s.authorizeWrite(ctx, userID, projectID, f.Category); err != nil {
		return err
	}

	if err := s.objects.Delete(ctx, f.StorageKey); err != nil {
		// The row is the record; a storage orphan is cleanup work, not a
		// failed delete.
		log.Printf("[files] storage delete %s: %v", f.StorageKey, err)
	}

	ok, err := s.store.Delete(ctx, projectID, fileID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrFileNotFound
	}

	log.Printf("[files] deleted %s from %s/%s", f.FileName, projectID, f.Category)
	return nil
}

func (s *FileService) authorizeWrite(ctx context.Context, userID, projectID string, category domain.Category) error {
	p, err := s.loadAsParticipant(ctx, userID, projectID)
	if err != nil {
		return err
	}

	role, _ := p.RoleOf(userID)
	if p.Closed() {
		return projects.ErrProjectClosed
	}
	if !domain.CanManage(role, p.Status, category) {
		return domain.ErrNotPermitted
	}
	return nil
}

func (s *FileService) loadAsParticipant(ctx context.Context, userID, projectID string) (*projects.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.RoleOf(userID); !ok {
		return nil, projects.ErrNotParticipant
	}
	return p, nil
}

func storageKey(projectID string, category domain.Category, fileID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("projects/%s/%s/%s%s", projectID, category, fileID, ext)
}
