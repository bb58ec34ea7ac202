package services

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
	"github.com/mghostels/booking-backend/pkg/validator"
)

// bedIDRegex matches well-formed bed identifiers. Bed ids are opaque but
// always URL-safe tokens; anything else is rejected before hitting the
// database.
var bedIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// BookingValidationService runs the pre-flight checks for a booking request.
// It never mutates state; the creation transaction re-checks bed availability
// under row locks afterwards, so a clean result here is advisory, not a hold.
type BookingValidationService struct {
	bedRepo      *database.BedRepository
	bookingRepo  *database.BookingRepository
	residentRepo *database.ResidentRepository
	phone        *validator.PhoneValidator
	logger       *logrus.Logger
}

// NewBookingValidationService creates a new booking validation service
func NewBookingValidationService(
	bedRepo *database.BedRepository,
	bookingRepo *database.BookingRepository,
	residentRepo *database.ResidentRepository,
	phone *validator.PhoneValidator,
	logger *logrus.Logger,
) *BookingValidationService {
	return &BookingValidationService{
		bedRepo:      bedRepo,
		bookingRepo:  bookingRepo,
		residentRepo: residentRepo,
		phone:        phone,
		logger:       logger,
	}
}

// ValidateCreateRequest runs all checks in order and returns the combined
// result. Checks after the structural ones still run even when earlier ones
// failed, so the caller gets every finding in one round trip.
func (s *BookingValidationService) ValidateCreateRequest(req *models.CreateBookingRequest) (*models.ValidationResult, error) {
	result := &models.ValidationResult{Valid: true}

	s.checkStructural(req, result)
	s.checkDuplicateBeds(req, result)
	s.checkBedIDFormat(req, result)

	if err := s.checkBedAvailability(req, result); err != nil {
		return nil, err
	}
	s.checkGenderAffinity(req, result)
	if err := s.checkContactUniqueness(req, result); err != nil {
		return nil, err
	}

	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		s.logger.WithFields(logrus.Fields{
			"contact_phone": req.ContactPhone,
			"guest_count":   len(req.Guests),
			"error_count":   len(result.Errors),
		}).Info("Booking request failed validation")
	}

	return result, nil
}

// checkStructural verifies each guest entry carries the required fields.
// Email is optional per guest; a missing one falls back to the contact
// person's email, so it is only an error when both are absent.
func (s *BookingValidationService) checkStructural(req *models.CreateBookingRequest, result *models.ValidationResult) {
	for i, guest := range req.Guests {
		if guest.BedID == "" {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrMissingField,
				GuestIndex: i,
				Field:      "bed_id",
				Message:    fmt.Sprintf("guest %d: bed id is required", i+1),
			})
		}
		if guest.Name == "" {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrMissingField,
				GuestIndex: i,
				Field:      "name",
				Message:    fmt.Sprintf("guest %d: name is required", i+1),
			})
		}
		if guest.Age < 1 || guest.Age > 120 {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrMissingField,
				GuestIndex: i,
				Field:      "age",
				Message:    fmt.Sprintf("guest %d: age must be between 1 and 120", i+1),
			})
		}
		if guest.Gender == "" {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrMissingField,
				GuestIndex: i,
				Field:      "gender",
				Message:    fmt.Sprintf("guest %d: gender is required", i+1),
			})
		}
		if _, err := s.phone.Validate(guest.Phone); err != nil {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrMissingField,
				GuestIndex: i,
				Field:      "phone",
				Message:    fmt.Sprintf("guest %d: %v", i+1, err),
			})
		}
	}
}

// checkDuplicateBeds rejects requests assigning the same bed to two guests
func (s *BookingValidationService) checkDuplicateBeds(req *models.CreateBookingRequest, result *models.ValidationResult) {
	seen := make(map[string]int, len(req.Guests))
	for i, guest := range req.Guests {
		if guest.BedID == "" || guest.BedID == models.AutoAssignBedID {
			continue
		}
		if first, ok := seen[guest.BedID]; ok {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrDuplicateBed,
				GuestIndex: i,
				BedID:      guest.BedID,
				Message:    fmt.Sprintf("bed %s is assigned to both guest %d and guest %d", guest.BedID, first+1, i+1),
			})
			continue
		}
		seen[guest.BedID] = i
	}
}

// checkBedIDFormat verifies bed ids are well-formed. The auto-assign sentinel
// is accepted only on single-guest requests.
func (s *BookingValidationService) checkBedIDFormat(req *models.CreateBookingRequest, result *models.ValidationResult) {
	for i, guest := range req.Guests {
		if guest.BedID == "" {
			continue
		}
		if guest.BedID == models.AutoAssignBedID {
			if len(req.Guests) > 1 {
				result.Errors = append(result.Errors, models.ValidationError{
					Kind:       models.ValidationErrBadBedID,
					GuestIndex: i,
					BedID:      guest.BedID,
					Message:    "auto bed assignment is only supported for single-guest bookings",
				})
			}
			continue
		}
		if !bedIDRegex.MatchString(guest.BedID) {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrBadBedID,
				GuestIndex: i,
				BedID:      guest.BedID,
				Message:    fmt.Sprintf("guest %d: bed id %q is not a valid identifier", i+1, guest.BedID),
			})
		}
	}
}

// checkBedAvailability batch-fetches the referenced beds and reports every id
// that is missing or not available, including the current status and holder
// name so callers can show who has the bed.
func (s *BookingValidationService) checkBedAvailability(req *models.CreateBookingRequest, result *models.ValidationResult) error {
	ids := make([]string, 0, len(req.Guests))
	indexByID := make(map[string]int, len(req.Guests))
	for i, guest := range req.Guests {
		if guest.BedID == "" || guest.BedID == models.AutoAssignBedID || !bedIDRegex.MatchString(guest.BedID) {
			continue
		}
		if _, dup := indexByID[guest.BedID]; dup {
			continue
		}
		ids = append(ids, guest.BedID)
		indexByID[guest.BedID] = i
	}
	if len(ids) == 0 {
		return nil
	}

	beds, err := s.bedRepo.FetchBeds(ids)
	if err != nil {
		return fmt.Errorf("failed to fetch beds for validation: %w", err)
	}

	bedByID := make(map[string]models.Bed, len(beds))
	for _, bed := range beds {
		bedByID[bed.ID] = bed
	}

	for _, id := range ids {
		idx := indexByID[id]
		bed, ok := bedByID[id]
		if !ok {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrBedNotFound,
				GuestIndex: idx,
				BedID:      id,
				Message:    fmt.Sprintf("bed %s does not exist", id),
			})
			continue
		}
		if bed.Status != models.BedStatusAvailable {
			ve := models.ValidationError{
				Kind:       models.ValidationErrBedUnavailable,
				GuestIndex: idx,
				BedID:      id,
				BedStatus:  bed.Status,
				Message:    fmt.Sprintf("bed %s is %s", bed.BedNumber, bed.Status),
			}
			if bed.OccupantName != nil {
				ve.HeldBy = *bed.OccupantName
				ve.Message = fmt.Sprintf("bed %s is %s (held by %s)", bed.BedNumber, bed.Status, *bed.OccupantName)
			}
			result.Errors = append(result.Errors, ve)
		}
	}

	return nil
}

// checkGenderAffinity compares guest gender against the bed's gender
// affinity. Affinity is informational for now; mismatches are not reported
// until the wardens decide on an enforcement policy.
func (s *BookingValidationService) checkGenderAffinity(_ *models.CreateBookingRequest, _ *models.ValidationResult) {
}

// checkContactUniqueness enforces that a guest phone does not belong to an
// active resident. A phone that only appears on another pending booking is a
// warning; first come first served is resolved at confirmation time.
func (s *BookingValidationService) checkContactUniqueness(req *models.CreateBookingRequest, result *models.ValidationResult) error {
	for i, guest := range req.Guests {
		sanitized, err := s.phone.Validate(guest.Phone)
		if err != nil {
			continue // already reported by the structural check
		}

		resident, err := s.residentRepo.GetActiveResidentByPhone(sanitized)
		if err != nil {
			return fmt.Errorf("failed to check resident phone: %w", err)
		}
		if resident != nil {
			result.Errors = append(result.Errors, models.ValidationError{
				Kind:       models.ValidationErrPhoneInUse,
				GuestIndex: i,
				Field:      "phone",
				Message:    fmt.Sprintf("phone %s already belongs to active resident %s", sanitized, resident.Name),
			})
			continue
		}

		pending, err := s.bookingRepo.CountPendingClaimsByPhone(sanitized)
		if err != nil {
			return fmt.Errorf("failed to check pending claims by phone: %w", err)
		}
		if pending > 0 {
			result.Warnings = append(result.Warnings, models.ValidationWarning{
				Kind:       models.WarnPhonePendingElsewhere,
				GuestIndex: i,
				Message:    fmt.Sprintf("phone %s already appears on another pending booking", sanitized),
			})
		}
	}

	return nil
}
