package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soundbridge/remote-projects-backend/internal/auth"
	"github.com/soundbridge/remote-projects-backend/internal/projects/domain"
	"github.com/soundbridge/remote-projects-backend/internal/projects/service"
)

// FileCounter reports how many files each category holds for a project. The
// files repository implements it; the detail payload uses the counts so
// clients know which file panels to show.
type FileCounter interface {
	CountByType(ctx context.Context, projectID string) (map[string]int, error)
}

type Handler struct {
	svc   *service.ProjectService
	files FileCounter
}

func Register(rg *gin.RouterGroup, svc *service.ProjectService, files FileCounter) *Handler {
	h := &Handler{svc: svc, files: files}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.detail)
	rg.PATCH("/:id/accept", h.accept)
	rg.PATCH("/:id/decline", h.decline)
	rg.PATCH("/:id/start", h.start)
	rg.PATCH("/:id/deliver", h.deliver)
	rg.PATCH("/:id/request-revision", h.requestRevision)
	rg.PATCH("/:id/complete", h.complete)
	rg.PATCH("/:id/cancel", h.cancel)

	return h
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	deadline, err := req.deadlineTime()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid deadline, want RFC 3339"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), auth.UserDBID(c), service.CreateInput{
		VendorID:          req.VendorID,
		Title:             req.Title,
		Brief:             req.Brief,
		ReferenceLinks:    req.ReferenceLinks,
		Price:             req.Price,
		Deadline:          deadline,
		EstimatedDays:     req.EstimatedDays,
		RevisionsIncluded: req.RevisionsIncluded,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	role := domain.Role(c.Query("role"))
	if role != "" && role != domain.RoleCustomer && role != domain.RoleVendor {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "role must be customer or vendor"})
		return
	}

	items, err := h.svc.List(c.Request.Context(), auth.UserDBID(c), role,
		domain.Status(c.Query("status")), limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items, "page": page})
}

func (h *Handler) detail(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), auth.UserDBID(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	counts := map[string]int{}
	if h.files != nil {
		if counts, err = h.files.CountByType(c.Request.Context(), d.Project.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"project":     d.Project,
		"viewer_role": d.Role,
		"actions":     d.Actions,
		"file_counts": counts,
	})
}

func (h *Handler) accept(c *gin.Context) {
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Accept(ctx, userID, id)
	})
}

func (h *Handler) decline(c *gin.Context) {
	var req declineReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Decline(ctx, userID, id, req.Reason)
	})
}

func (h *Handler) start(c *gin.Context) {
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Start(ctx, userID, id)
	})
}

func (h *Handler) deliver(c *gin.Context) {
	var req deliverReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Deliver(ctx, userID, id, req.DeliveryNotes)
	})
}

func (h *Handler) requestRevision(c *gin.Context) {
	var req revisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.RequestRevision(ctx, userID, id, req.Feedback)
	})
}

func (h *Handler) complete(c *gin.Context) {
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Complete(ctx, userID, id)
	})
}

func (h *Handler) cancel(c *gin.Context) {
	h.transition(c, func(ctx context.Context, userID, id string) (*domain.Project, error) {
		return h.svc.Cancel(ctx, userID, id)
	})
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, userID, id string) (*domain.Project, error)) {
	p, err := fn(c.Request.Context(), auth.UserDBID(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// respondErr maps domain errors onto status codes. The message is always a
// plain sentence; raw storage errors stay in the logs.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "your role may not take this action"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "action not allowed in the current status"})
	case errors.Is(err, domain.ErrRevisionsExhausted):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "all included revisions have been used"})
	case errors.Is(err, domain.ErrFeedbackRequired):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "revision feedback is required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
