package http

import "github.com/soundbridge/remote-projects-backend/internal/files/domain"

type uploadURLReq struct {
	Type  string `json:"type" binding:"required"`
	Files []struct {
		Name     string `json:"name" binding:"required"`
		Size     int64  `json:"size" binding:"required"`
		MimeType string `json:"mime_type"`
	} `json:"files" binding:"required"`
}

func (r uploadURLReq) infos() []domain.FileInfo {
	out := make([]domain.FileInfo, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, domain.FileInfo{Name: f.Name, Size: f.Size, MimeType: f.MimeType})
	}
	return out
}

type registerReq struct {
	FileID string `json:"file_id" binding:"required"`
}
