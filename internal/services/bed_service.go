package services

import (
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
)

// BedService exposes the bed directory for read endpoints and the
// operator-driven maintenance cycle. Available/Reserved/Occupied transitions
// belong to the allocation transactions and are not reachable from here.
type BedService struct {
	bedRepo *database.BedRepository
	logger  *logrus.Logger
}

// NewBedService creates a new bed service
func NewBedService(bedRepo *database.BedRepository, logger *logrus.Logger) *BedService {
	return &BedService{
		bedRepo: bedRepo,
		logger:  logger,
	}
}

// ListBeds returns a page of beds, optionally filtered by status
func (s *BedService) ListBeds(status *models.BedStatus, limit, offset int) ([]models.Bed, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.bedRepo.ListBeds(status, limit, offset)
}

// GetBed returns one bed by id, or nil when it does not exist
func (s *BedService) GetBed(bedID string) (*models.Bed, error) {
	return s.bedRepo.GetBedByID(bedID)
}

// GetRoomAvailability returns per-room bed counts by status
func (s *BedService) GetRoomAvailability() ([]models.RoomAvailability, error) {
	return s.bedRepo.GetRoomAvailability()
}

// SetMaintenance moves an available bed into maintenance
func (s *BedService) SetMaintenance(bedID, reason string) error {
	if err := s.bedRepo.SetMaintenance(bedID, reason); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"bed_id": bedID,
		"reason": reason,
	}).Info("Bed moved to maintenance")
	return nil
}

// ClearMaintenance returns a maintenance bed to available
func (s *BedService) ClearMaintenance(bedID string) error {
	if err := s.bedRepo.ClearMaintenance(bedID); err != nil {
		return err
	}
	s.logger.WithField("bed_id", bedID).Info("Bed returned from maintenance")
	return nil
}
