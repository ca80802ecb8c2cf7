package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RejectionReason is the machine-readable cause attached to a per-file
// rejection. Exactly two causes exist: wrong extension or over the size limit.
type RejectionReason string

const (
	ReasonWrongType RejectionReason = "wrong_type"
	ReasonTooLarge  RejectionReason = "too_large"
)

// FileInfo describes a file the client wants to upload, before any bytes move.
type FileInfo struct {
	Name     string `json:"file_name"`
	Size     int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// Rejection names one file that failed validation and why, in plain language.
type Rejection struct {
	Name    string          `json:"file_name"`
	Reason  RejectionReason `json:"reason"`
	Message string          `json:"message"`
}

// Policy is the per-category upload policy: extension allow-list, size cap in
// MB, and a total file count cap.
type Policy struct {
	AcceptedExtensions []string
	MaxFileSizeMB      int64
	MaxFilesPerType    int
}

// ValidateFile checks one file against the policy. nil means accepted.
func (p Policy) ValidateFile(f FileInfo) *Rejection {
	ext := strings.ToLower(filepath.Ext(f.Name))
	ok := false
	for _, a := range p.AcceptedExtensions {
		if ext == strings.ToLower(a) {
			ok = true
			break
		}
	}
	if !ok {
		return &Rejection{
			Name:    f.Name,
			Reason:  ReasonWrongType,
			Message: fmt.Sprintf("%s: file type not accepted (want %s)", f.Name, strings.Join(p.AcceptedExtensions, ", ")),
		}
	}

	if f.Size > p.MaxFileSizeMB*1024*1024 {
		return &Rejection{
			Name:    f.Name,
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("%s: exceeds the %d MB limit", f.Name, p.MaxFileSizeMB),
		}
	}

	return nil
}

// ValidateBatch applies the policy to a whole upload batch. A batch that would
// push the category past MaxFilesPerType is rejected in full before any file
// is looked at; otherwise files fail individually and the rest proceed.
func (p Policy) ValidateBatch(existingCount int, files []FileInfo) (accepted []FileInfo, rejected []Rejection, err error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no files in batch")
	}
	if p.MaxFilesPerType > 0 && existingCount+len(files) > p.MaxFilesPerType {
		return nil, nil, ErrTooManyFiles
	}

	for _, f := range files {
		if r := p.ValidateFile(f); r != nil {
			rejected = append(rejected, *r)
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected, nil
}
