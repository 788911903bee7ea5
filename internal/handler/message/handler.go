package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/middleware"
	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/service/message"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/httputil"
)

type Handler struct {
	service *message.Service
}

func NewHandler(service *message.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/threads/:id/messages", h.PostMessage)
	rg.GET("/threads/:id/messages", h.ListMessages)
	rg.PUT("/messages/:id", h.EditMessage)
	rg.DELETE("/messages/:id", h.DeleteMessage)
	rg.POST("/messages/:id/flag", h.FlagMessage)
	rg.DELETE("/messages/:id/flag", h.UnflagMessage)
}

func (h *Handler) PostMessage(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	var req model.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	msg, err := h.service.PostMessage(c.Request.Context(), threadID, identity.UserID, req.Body, req.Attachments, req.ReplyToID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, msg)
}

func (h *Handler) ListMessages(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid thread ID", err))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	includeDeleted := c.Query("include_deleted") == "true"

	page, err := h.service.ListMessages(c.Request.Context(), threadID, identity.UserID, c.Query("cursor"), limit, includeDeleted)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, page)
}

func (h *Handler) EditMessage(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid message ID", err))
		return
	}

	var req model.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	msg, err := h.service.EditMessage(c.Request.Context(), id, identity.UserID, req.Body)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, msg)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid message ID", err))
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), id, identity.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) FlagMessage(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid message ID", err))
		return
	}

	var req model.FlagMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	msg, err := h.service.FlagMessage(c.Request.Context(), id, identity.UserID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, msg)
}

func (h *Handler) UnflagMessage(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid message ID", err))
		return
	}

	msg, err := h.service.UnflagMessage(c.Request.Context(), id, identity.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, msg)
}
