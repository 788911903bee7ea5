package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studiokit/community-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError maps an error kind to its HTTP status and sends the
// error envelope.
func RespondWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), Response{
		Status:  "error",
		Message: messageFor(err),
	})
}

func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden, errors.ErrNotAMember:
		return http.StatusForbidden
	case errors.ErrThreadLocked, errors.ErrDuplicateMember, errors.ErrLastOwner:
		return http.StatusConflict
	case errors.ErrInvalidReply, errors.ErrInvalidVisibility:
		return http.StatusUnprocessableEntity
	case errors.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
