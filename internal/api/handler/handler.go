package handler

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/lifecycle"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Manager     *lifecycle.Manager
	Location    *time.Location
	ServiceName string
}

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	logger   *slog.Logger
	manager  *lifecycle.Manager
	location *time.Location
}

// NewBookingHandler creates a new BookingHandler instance
func NewBookingHandler(deps *Dependencies) *BookingHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &BookingHandler{
		logger:   deps.Logger,
		manager:  deps.Manager,
		location: loc,
	}
}
