package services

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/config"
	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
)

// ProfileCreator hands a confirmed guest claim to the resident profile
// system. Implementations must tolerate retries for the same claim.
type ProfileCreator interface {
	CreateProfileFromClaim(ctx context.Context, claim *models.GuestClaim, booking *models.Booking) (string, error)
}

// profileRequest is the payload sent to the profile service
type profileRequest struct {
	Name             string  `json:"name"`
	Age              int     `json:"age"`
	Gender           string  `json:"gender"`
	Phone            string  `json:"phone"`
	Email            *string `json:"email,omitempty"`
	RoomNumber       string  `json:"room_number"`
	BedNumber        string  `json:"bed_number"`
	BookingReference string  `json:"booking_reference"`
}

// profileResponse is the profile service's reply
type profileResponse struct {
	ProfileID string `json:"profile_id"`
}

// ProfileService creates resident profiles in the downstream profile system
// after a claim is confirmed. Calls happen outside the allocation
// transaction; a failure here is reported to the caller but never rolls the
// confirmation back.
type ProfileService struct {
	client       *resty.Client
	residentRepo *database.ResidentRepository
	logger       *logrus.Logger
}

// NewProfileService creates a new profile service client
func NewProfileService(cfg config.ProfilesConfig, residentRepo *database.ResidentRepository, logger *logrus.Logger) *ProfileService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &ProfileService{
		client:       client,
		residentRepo: residentRepo,
		logger:       logger,
	}
}

// CreateProfileFromClaim creates a resident profile for one confirmed guest
// claim. The claim id doubles as the idempotency key so the profile service
// can dedupe retried calls. On success the local resident read model is
// updated with the returned profile id.
func (s *ProfileService) CreateProfileFromClaim(ctx context.Context, claim *models.GuestClaim, booking *models.Booking) (string, error) {
	email := claim.Email
	if email == nil {
		email = booking.ContactEmail
	}

	var respBody profileResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", claim.ID).
		SetBody(profileRequest{
			Name:             claim.Name,
			Age:              claim.Age,
			Gender:           claim.Gender,
			Phone:            claim.Phone,
			Email:            email,
			RoomNumber:       claim.AssignedRoom,
			BedNumber:        claim.AssignedBed,
			BookingReference: booking.BookingReference,
		}).
		SetResult(&respBody).
		Post("/api/v1/profiles")
	if err != nil {
		return "", fmt.Errorf("profile service request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("profile service returned %d: %s", resp.StatusCode(), resp.String())
	}
	if respBody.ProfileID == "" {
		return "", fmt.Errorf("profile service returned no profile id")
	}

	if err := s.residentRepo.UpsertFromProfile(claim.Name, claim.Phone, email, respBody.ProfileID); err != nil {
		// The profile exists downstream; a stale local read model is
		// recoverable, so log and report success.
		s.logger.WithFields(logrus.Fields{
			"guest_claim_id": claim.ID,
			"profile_id":     respBody.ProfileID,
			"error":          err.Error(),
		}).Warn("Failed to update local resident record after profile creation")
	}

	s.logger.WithFields(logrus.Fields{
		"guest_claim_id":    claim.ID,
		"profile_id":        respBody.ProfileID,
		"booking_reference": booking.BookingReference,
	}).Info("Resident profile created")

	return respBody.ProfileID, nil
}
