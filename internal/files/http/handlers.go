package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundbridge/remote-projects-backend/internal/auth"
	"github.com/soundbridge/remote-projects-backend/internal/files/domain"
	"github.com/soundbridge/remote-projects-backend/internal/files/service"
	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

type Handler struct {
	svc *service.FileService
}

// Register mounts the file routes on the project group. The download route may
// carry extra middleware (rate limiting) supplied by the caller.
func Register(rg *gin.RouterGroup, svc *service.FileService, downloadMW ...gin.HandlerFunc) *Handler {
	h := &Handler{svc: svc}

	rg.POST("/:id/files/upload-url", h.uploadURL)
	rg.POST("/:id/files", h.register)
	rg.GET("/:id/files", h.list)
	rg.GET("/:id/files/:fileId/download", append(downloadMW, h.download)...)
	rg.DELETE("/:id/files/:fileId", h.remove)

	return h
}

func (h *Handler) uploadURL(c *gin.Context) {
	var req uploadURLReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	category := domain.Category(req.Type)
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "type must be source, deliverable or revision"})
		return
	}

	grants, rejected, err := h.svc.RequestUpload(c.Request.Context(), auth.UserDBID(c),
		c.Param("id"), category, req.infos())
	if err != nil {
		respondErr(c, err)
		return
	}
	if rejected == nil {
		rejected = []domain.Rejection{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "uploads": grants, "rejected": rejected})
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f, err := h.svc.Register(c.Request.Context(), auth.UserDBID(c), c.Param("id"), req.FileID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "file": f})
}

func (h *Handler) list(c *gin.Context) {
	category := domain.Category(c.Query("type"))
	if category != "" && !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "type must be source, deliverable or revision"})
		return
	}

	files, err := h.svc.List(c.Request.Context(), auth.UserDBID(c), c.Param("id"), category)
	if err != nil {
		respondErr(c, err)
		return
	}
	if files == nil {
		files = []domain.ProjectFile{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "files": files})
}

func (h *Handler) download(c *gin.Context) {
	url, err := h.svc.DownloadURL(c.Request.Context(), auth.UserDBID(c),
		c.Param("id"), c.Param("fileId"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

func (h *Handler) remove(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), auth.UserDBID(c), c.Param("id"), c.Param("fileId"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, projects.ErrNotFound), errors.Is(err, projects.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "file not found"})
	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"ok": false, "error": "upload session expired, request a new upload url"})
	case errors.Is(err, projects.ErrProjectClosed):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "project is closed"})
	case errors.Is(err, domain.ErrNotPermitted):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "your role may not manage these files right now"})
	case errors.Is(err, domain.ErrTooManyFiles):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
