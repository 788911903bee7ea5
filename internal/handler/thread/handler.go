package thread

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/middleware"
	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/service/readstate"
	"github.com/studiokit/community-api/internal/service/thread"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/httputil"
)

type Handler struct {
	threads   *thread.Service
	readstate *readstate.Service
}

func NewHandler(threads *thread.Service, rs *readstate.Service) *Handler {
	return &Handler{threads: threads, readstate: rs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/threads", h.CreateThread)
	rg.GET("/threads", h.ListThreads)
	rg.GET("/threads/:id", h.GetThread)
	rg.PUT("/threads/:id/lock", h.SetLocked)
	rg.PUT("/threads/:id/archive", h.SetArchived)
	rg.GET("/threads/:id/members", h.ListMembers)
	rg.POST("/threads/:id/members", h.AddMember)
	rg.DELETE("/threads/:id/members/:userID", h.RemoveMember)
	rg.PUT("/threads/:id/mute", h.SetMuted)
	rg.PUT("/threads/:id/notifications", h.SetNotificationsEnabled)
	rg.POST("/threads/:id/read", h.MarkRead)
	rg.GET("/threads/:id/unread", h.UnreadCount)
	rg.GET("/unread", h.AggregateUnread)
}

func (h *Handler) CreateThread(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	var req model.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	t, err := h.threads.CreateThread(c.Request.Context(), identity.OrganizationID, req.Kind, req.Title, req.Visibility, identity.UserID, req.ContextID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, t)
}

func (h *Handler) ListThreads(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.threads.ListThreadsForUser(c.Request.Context(), identity.UserID, identity.OrganizationID, c.Query("cursor"), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, page)
}

func (h *Handler) GetThread(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	t, err := h.threads.GetThread(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

func (h *Handler) SetLocked(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req model.SetLockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.threads.SetLocked(c.Request.Context(), id, req.Locked, identity.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"locked": req.Locked})
}

func (h *Handler) SetArchived(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req model.SetArchivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.threads.SetArchived(c.Request.Context(), id, req.Archived, identity.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"archived": req.Archived})
}

func (h *Handler) ListMembers(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	members, err := h.threads.ListMembers(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, members)
}

func (h *Handler) AddMember(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req model.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	member, err := h.threads.AddMember(c.Request.Context(), id, req.UserID, req.Role)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, member)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user ID", err))
		return
	}

	if err := h.threads.RemoveMember(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetMuted(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req struct {
		Muted bool `json:"muted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	member, err := h.readstate.SetMuted(c.Request.Context(), id, identity.UserID, req.Muted)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, member)
}

func (h *Handler) SetNotificationsEnabled(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	member, err := h.readstate.SetNotificationsEnabled(c.Request.Context(), id, identity.UserID, req.Enabled)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, member)
}

func (h *Handler) MarkRead(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req struct {
		MessageID uuid.UUID `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.readstate.MarkRead(c.Request.Context(), id, identity.UserID, req.MessageID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	count, err := h.readstate.UnreadCount(c.Request.Context(), id, identity.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"unread": count})
}

func (h *Handler) AggregateUnread(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	total, err := h.readstate.AggregateUnread(c.Request.Context(), identity.UserID, identity.OrganizationID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"unread": total})
}
