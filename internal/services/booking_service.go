package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
)

// BookingService orchestrates the allocation lifecycle: create reserves beds,
// confirm commits (possibly partially), cancel releases. Each operation maps
// to exactly one database transaction; profile handoff and notifications run
// after commit and never affect the transaction's outcome.
type BookingService struct {
	bookingRepo *database.BookingRepository
	bedRepo     *database.BedRepository
	validation  *BookingValidationService
	profiles    ProfileCreator
	notifier    StatusNotifier
	logger      *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo *database.BookingRepository,
	bedRepo *database.BedRepository,
	validation *BookingValidationService,
	profiles ProfileCreator,
	notifier StatusNotifier,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		bedRepo:     bedRepo,
		validation:  validation,
		profiles:    profiles,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateBooking validates the request and creates the booking with all its
// guest claims, reserving every referenced bed. Creation is all or nothing:
// if any bed is no longer available inside the transaction the whole request
// fails with a conflict naming the beds.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, *models.ValidationResult, error) {
	result, err := s.validation.ValidateCreateRequest(req)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result, &models.ValidationFailedError{Result: result}
	}

	booking := &models.Booking{
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Status:       models.BookingStatusPending,
		TotalGuests:  len(req.Guests),
		CheckInDate:  req.CheckInDate,
		DurationDays: req.DurationDays,
		Notes:        req.Notes,
		Source:       req.Source,
	}

	claims := make([]models.GuestClaim, len(req.Guests))
	for i, guest := range req.Guests {
		claims[i] = models.GuestClaim{
			BedID:  guest.BedID,
			Name:   guest.Name,
			Age:    guest.Age,
			Gender: guest.Gender,
			Phone:  guest.Phone,
			Email:  guest.Email,
			Status: models.GuestClaimStatusPending,
		}
	}

	created, err := s.bookingRepo.CreateBooking(booking, claims, s.bedRepo)
	if err != nil {
		return nil, result, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        created.ID,
		"booking_reference": created.BookingReference,
		"total_guests":      created.TotalGuests,
	}).Info("Booking created")

	s.notifier.PublishBookingStatusChanged(ctx, created, "", models.BookingStatusPending)

	return created, result, nil
}

// ConfirmBooking confirms a pending booking. Partial success is a normal
// outcome: claims whose beds were lost since creation are cancelled and the
// booking becomes partially confirmed. After commit each newly confirmed
// claim is handed to the profile system; those failures are advisory.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, confirmedBy string) (*models.ConfirmBookingResult, error) {
	outcome, err := s.bookingRepo.ConfirmBooking(bookingID, confirmedBy, s.bedRepo)
	if err != nil {
		return nil, err
	}

	booking := outcome.Booking
	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"status":            booking.Status,
		"confirmed_guests":  booking.ConfirmedGuests,
		"total_guests":      booking.TotalGuests,
		"failed_beds":       outcome.FailedBedIDs,
	}).Info("Booking confirmed")

	result := &models.ConfirmBookingResult{
		Booking:         booking,
		ConfirmedGuests: booking.ConfirmedGuests,
		TotalGuests:     booking.TotalGuests,
		FailedBedIDs:    outcome.FailedBedIDs,
	}

	// Post-commit handoff. The allocation is already durable; a profile
	// failure is reported per guest, never rolled back.
	for i := range outcome.ConfirmedClaims {
		claim := &outcome.ConfirmedClaims[i]
		if _, err := s.profiles.CreateProfileFromClaim(ctx, claim, booking); err != nil {
			s.logger.WithFields(logrus.Fields{
				"booking_reference": booking.BookingReference,
				"guest_claim_id":    claim.ID,
				"guest_name":        claim.Name,
				"error":             err.Error(),
			}).Error("Profile handoff failed for confirmed guest")
			result.ProfileFailures = append(result.ProfileFailures, models.ProfileFailure{
				GuestClaimID: claim.ID,
				GuestName:    claim.Name,
				Error:        err.Error(),
			})
		}
	}

	s.notifier.PublishBookingStatusChanged(ctx, booking, models.BookingStatusPending, booking.Status)

	return result, nil
}

// CancelBooking cancels a booking, cancelling every non-terminal guest claim
// and releasing every bed the booking still holds. Strictly all or nothing.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, reason, cancelledBy string) (*models.Booking, error) {
	previous, err := s.currentStatus(bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.CancelBooking(bookingID, reason, cancelledBy, s.bedRepo)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"reason":            reason,
	}).Info("Booking cancelled")

	s.notifier.PublishBookingStatusChanged(ctx, booking, previous, models.BookingStatusCancelled)

	return booking, nil
}

// GetBooking returns one booking with its guest claims
func (s *BookingService) GetBooking(bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &models.BookingNotFoundError{BookingID: bookingID}
	}
	return booking, nil
}

// GetBookingByReference returns one booking looked up by its reference
func (s *BookingService) GetBookingByReference(reference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByReference(reference)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &models.BookingNotFoundError{BookingID: reference}
	}
	return booking, nil
}

// ListBookings returns a page of bookings, optionally filtered by status
func (s *BookingService) ListBookings(status *models.BookingStatus, limit, offset int) ([]models.BookingListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListBookings(status, limit, offset)
}

// currentStatus reads the booking's status outside the transaction, for the
// previous-status field of the cancellation event. The transaction re-checks
// it under a row lock.
func (s *BookingService) currentStatus(bookingID string) (models.BookingStatus, error) {
	booking, err := s.bookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return "", fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return "", &models.BookingNotFoundError{BookingID: bookingID}
	}
	return booking.Status, nil
}
