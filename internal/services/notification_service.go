package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/models"
)

// StatusNotifier publishes booking status change events. Dispatch is fire
// and forget; implementations must never return an error that could alter
// the caller's outcome.
type StatusNotifier interface {
	PublishBookingStatusChanged(ctx context.Context, booking *models.Booking, previous, next models.BookingStatus)
}

// bookingStatusEvent is the wire shape published on the events channel
type bookingStatusEvent struct {
	BookingID        string               `json:"booking_id"`
	BookingReference string               `json:"booking_reference"`
	PreviousStatus   models.BookingStatus `json:"previous_status"`
	NewStatus        models.BookingStatus `json:"new_status"`
	TotalGuests      int                  `json:"total_guests"`
	ConfirmedGuests  int                  `json:"confirmed_guests"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

// NotificationService publishes booking lifecycle events to a Redis channel
// consumed by the notification workers.
type NotificationService struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(client *redis.Client, channel string, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// PublishBookingStatusChanged publishes a status change event. Failures are
// logged and swallowed; the allocation outcome is already committed and must
// not depend on the broker.
func (s *NotificationService) PublishBookingStatusChanged(ctx context.Context, booking *models.Booking, previous, next models.BookingStatus) {
	event := bookingStatusEvent{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		PreviousStatus:   previous,
		NewStatus:        next,
		TotalGuests:      booking.TotalGuests,
		ConfirmedGuests:  booking.ConfirmedGuests,
		OccurredAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal booking status event")
		return
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_reference": booking.BookingReference,
			"new_status":        next,
			"error":             err.Error(),
		}).Error("Failed to publish booking status event")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": booking.BookingReference,
		"previous_status":   previous,
		"new_status":        next,
	}).Debug("Published booking status event")
}
