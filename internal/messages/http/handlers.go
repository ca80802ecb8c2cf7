package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundbridge/remote-projects-backend/internal/auth"
	"github.com/soundbridge/remote-projects-backend/internal/messages/domain"
	"github.com/soundbridge/remote-projects-backend/internal/messages/service"
	projects "github.com/soundbridge/remote-projects-backend/internal/projects/domain"
)

type sendReq struct {
	Body string `json:"body" binding:"required"`
}

type markReadReq struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

type Handler struct {
	svc *service.MessageService
}

func Register(rg *gin.RouterGroup, svc *service.MessageService) *Handler {
	h := &Handler{svc: svc}

	rg.POST("/:id/messages", h.send)
	rg.GET("/:id/messages", h.list)
	rg.GET("/:id/messages/unread", h.unread)
	rg.PATCH("/:id/messages/read", h.markRead)

	return h
}

func (h *Handler) send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	m, err := h.svc.Send(c.Request.Context(), auth.UserDBID(c), c.Param("id"), req.Body)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "message": m})
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid since, want RFC 3339"})
			return
		}
		since = &t
	}

	items, err := h.svc.List(c.Request.Context(), auth.UserDBID(c), c.Param("id"),
		since, limit, (page-1)*limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": items, "page": page})
}

func (h *Handler) unread(c *gin.Context) {
	n, err := h.svc.Unread(c.Request.Context(), auth.UserDBID(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "unread": n})
}

func (h *Handler) markRead(c *gin.Context) {
	var req markReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	n, err := h.svc.MarkRead(c.Request.Context(), auth.UserDBID(c), c.Param("id"), req.MessageIDs)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "marked_as_read": n})
}

func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, projects.ErrNotFound), errors.Is(err, projects.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "message body is empty"})
	case errors.Is(err, projects.ErrProjectClosed):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "project is closed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
