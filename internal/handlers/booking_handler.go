package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/middleware"
	"github.com/mghostels/booking-backend/internal/models"
	"github.com/mghostels/booking-backend/internal/services"
)

// BookingHandler handles booking allocation endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// ============================================================================
// CREATE BOOKING - POST /api/v1/bookings
// ============================================================================

// CreateBooking creates a booking with its guest claims and reserves the beds
// @Summary Create booking
// @Description Validates the request, reserves every referenced bed and creates the booking in pending status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Validation failed"
// @Failure 409 {object} map[string]interface{} "Beds no longer available"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	booking, result, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		var validationErr *models.ValidationFailedError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "validation_failed",
				"errors":   validationErr.Result.Errors,
				"warnings": validationErr.Result.Warnings,
			})
			return
		}

		var conflictErr *models.BedConflictError
		if errors.As(err, &conflictErr) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "beds_unavailable",
				"bed_ids": conflictErr.BedIDs,
				"message": conflictErr.Error(),
			})
			return
		}

		h.logger.WithError(err).Error("Failed to create booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking":  booking,
		"warnings": result.Warnings,
	})
}

// ============================================================================
// CONFIRM BOOKING - POST /api/v1/bookings/:id/confirm
// ============================================================================

// ConfirmBooking confirms a pending booking, possibly partially
// @Summary Confirm booking
// @Description Confirms every guest claim whose bed is still reserved for this booking; lost beds cancel their claims
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Param request body models.ConfirmBookingRequest false "Confirmation details"
// @Success 200 {object} models.ConfirmBookingResult
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Not confirmable"
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	bookingID := c.Param("id")

	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	confirmedBy := req.ConfirmedBy
	if confirmedBy == "" {
		if staffCtx, ok := middleware.GetStaffContext(c); ok {
			confirmedBy = staffCtx.Username
		}
	}

	result, err := h.bookingService.ConfirmBooking(c.Request.Context(), bookingID, confirmedBy)
	if err != nil {
		h.respondBookingError(c, err, "Failed to confirm booking")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ============================================================================
// CANCEL BOOKING - POST /api/v1/bookings/:id/cancel
// ============================================================================

// CancelBooking cancels a booking and releases its beds
// @Summary Cancel booking
// @Description Cancels every non-terminal guest claim and returns the booking's beds to available
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Param request body models.CancelBookingRequest true "Cancellation details"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Already terminal"
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID := c.Param("id")

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	cancelledBy := req.CancelledBy
	if cancelledBy == "" {
		if staffCtx, ok := middleware.GetStaffContext(c); ok {
			cancelledBy = staffCtx.Username
		}
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), bookingID, req.Reason, cancelledBy)
	if err != nil {
		h.respondBookingError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// GET BOOKING - GET /api/v1/bookings/:id
// ============================================================================

// GetBooking returns one booking with its guest claims
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		h.respondBookingError(c, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// GET BY REFERENCE - GET /api/v1/bookings/reference/:reference
// ============================================================================

// GetBookingByReference returns one booking looked up by its reference
// @Summary Get booking by reference
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param reference path string true "Booking reference"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/reference/{reference} [get]
func (h *BookingHandler) GetBookingByReference(c *gin.Context) {
	booking, err := h.bookingService.GetBookingByReference(c.Param("reference"))
	if err != nil {
		h.respondBookingError(c, err, "Failed to get booking by reference")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// LIST BOOKINGS - GET /api/v1/bookings
// ============================================================================

// ListBookings returns a page of bookings
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BookingStatus(raw)
		switch s {
		case models.BookingStatusPending, models.BookingStatusConfirmed,
			models.BookingStatusPartiallyConfirmed, models.BookingStatusCancelled,
			models.BookingStatusCompleted:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter: " + raw})
			return
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookingService.ListBookings(status, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// respondBookingError maps the engine's typed errors onto HTTP responses
func (h *BookingHandler) respondBookingError(c *gin.Context, err error, logMsg string) {
	var notFoundErr *models.BookingNotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "booking_not_found",
			"message": notFoundErr.Error(),
		})
		return
	}

	var statusErr *models.BookingStatusError
	if errors.As(err, &statusErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_booking_status",
			"status":  statusErr.Status,
			"message": statusErr.Error(),
		})
		return
	}

	var conflictErr *models.BedConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "beds_unavailable",
			"bed_ids": conflictErr.BedIDs,
			"message": conflictErr.Error(),
		})
		return
	}

	h.logger.WithError(err).Error(logMsg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
