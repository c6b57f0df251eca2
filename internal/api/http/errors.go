package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/burnchat/internal/service"
)

func writeError(ctx *gin.Context, err error) {
	status, message := statusFor(err)
	ctx.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrRoomFull):
		return http.StatusForbidden, "Room is full"
	case errors.Is(err, service.ErrRoomNotFound):
		return http.StatusNotFound, "Room not found"
	case errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound, "Message not found"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
