package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/booking-core/internal/api/dto"
	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps a lifecycle error to an HTTP status
func statusFor(err error) int {
	var missing *domain.MissingFieldError
	var precondition *domain.PreconditionError

	switch {
	case errors.As(err, &missing),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrPastDue),
		errors.Is(err, domain.ErrUnknownConsumerType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRole):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyTaken),
		errors.Is(err, domain.ErrAlreadyBooked),
		errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrTransitionNoOp):
		return http.StatusConflict
	case errors.As(err, &precondition):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *BookingHandler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := domain.UserMessage(err)

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("operation", op),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		message = "Internal server error"
	} else {
		h.logger.Info("Request rejected",
			slog.String("operation", op),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}

	c.JSON(status, dto.ErrorResponse{Status: "fail", Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Status: "fail", Message: message})
}
