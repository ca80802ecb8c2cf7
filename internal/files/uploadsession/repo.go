package uploadsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "rpj:upload:"      // session data: rpj:upload:{file_id}
	indexKey         = "rpj:upload:index" // set of live session ids, swept by the janitor
	sessionTTL       = 30 * time.Minute
)

var ErrNotFound = errors.New("upload session not found")

// Session is the pending half of a two-step upload: created when the client is
// handed a presigned PUT URL, consumed when the finished upload is registered.
// Redis TTL bounds how long an unconsumed grant stays valid.
type Session struct {
	FileID     string    `json:"file_id"`
	ProjectID  string    `json:"project_id"`
	Category   string    `json:"category"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	StorageKey string    `json:"storage_key"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type Repo struct {
	client *redis.Client
}

func NewRepo(client *redis.Client) *Repo {
	return &Repo{client: client}
}

func (r *Repo) key(fileID string) string {
	return sessionKeyPrefix + fileID
}

func (r *Repo) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal upload session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.key(s.FileID), data, sessionTTL)
	pipe.SAdd(ctx, indexKey, s.FileID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create upload session: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, fileID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(fileID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal upload session: %w", err)
	}
	return &s, nil
}

func (r *Repo) Delete(ctx context.Context, fileID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.key(fileID))
	pipe.SRem(ctx, indexKey, fileID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete upload session: %w", err)
	}
	return nil
}

// Sweep drops index entries whose session key already expired. Returns how
// many orphans were cleared.
func (r *Repo) Sweep(ctx context.Context) (int, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list upload sessions: %w", err)
	}

	cleared := 0
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.key(id)).Result()
		if err != nil {
			return cleared, err
		}
		if n == 0 {
			if err := r.client.SRem(ctx, indexKey, id).Err(); err != nil {
				return cleared, err
			}
			cleared++
		}
	}
	return cleared, nil
}
