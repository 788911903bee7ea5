package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studiokit/community-api/internal/middleware"
	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/service/notification"
	apperrors "github.com/studiokit/community-api/pkg/errors"
	"github.com/studiokit/community-api/pkg/httputil"
	"github.com/studiokit/community-api/pkg/validator"
)

type Handler struct {
	service  *notification.Service
	validate validator.Validator
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.ListNotifications)
	rg.POST("/notifications/:id/read", h.MarkRead)
	rg.GET("/preferences", h.GetPreferences)
	rg.PUT("/preferences", h.SavePreferences)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.service.ListNotifications(c.Request.Context(), identity.UserID, c.Query("cursor"), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, page)
}

func (h *Handler) MarkRead(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkNotificationRead(c.Request.Context(), id, identity.UserID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	pref, err := h.service.Preferences(c.Request.Context(), identity.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, pref)
}

func (h *Handler) SavePreferences(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	var req model.SavePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	pref := &model.NotificationPreference{
		UserID:               identity.UserID,
		Timezone:             req.Timezone,
		InApp:                req.InApp,
		Email:                req.Email,
		Push:                 req.Push,
		Sound:                req.Sound,
		NewMessages:          req.NewMessages,
		ClassReminders:       req.ClassReminders,
		CommunityUpdates:     req.CommunityUpdates,
		InstructorResponses:  req.InstructorResponses,
		EngagementMilestones: req.EngagementMilestones,
		SystemAlerts:         req.SystemAlerts,
		QuietHoursEnabled:    req.QuietHoursEnabled,
	}
	if req.QuietHoursEnabled {
		start, err := model.ParseTimeOfDay(req.QuietHoursStart)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid quiet hours start", err))
			return
		}
		end, err := model.ParseTimeOfDay(req.QuietHoursEnd)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid quiet hours end", err))
			return
		}
		pref.QuietHoursStart = start
		pref.QuietHoursEnd = end
	}

	if err := h.service.SavePreferences(c.Request.Context(), pref); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, pref)
}
