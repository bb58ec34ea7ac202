package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mghostels/booking-backend/internal/models"
)

// ResidentRepository handles resident profile read-model operations
type ResidentRepository struct {
	db *sqlx.DB
}

// NewResidentRepository creates a new ResidentRepository
func NewResidentRepository(db *sqlx.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// GetActiveResidentByPhone returns the active resident holding the given
// phone, or nil when the phone is free.
func (r *ResidentRepository) GetActiveResidentByPhone(phone string) (*models.Resident, error) {
	resident := &models.Resident{}
	err := r.db.Get(resident, `
		SELECT id, profile_id, name, phone, email, status, created_at, updated_at
		FROM residents
		WHERE phone = $1 AND status = 'active'`, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resident by phone: %w", err)
	}
	return resident, nil
}

// UpsertFromProfile records the downstream profile id for a confirmed guest.
// Idempotent on phone so a retried handoff does not duplicate rows.
func (r *ResidentRepository) UpsertFromProfile(name, phone string, email *string, profileID string) error {
	_, err := r.db.Exec(`
		INSERT INTO residents (name, phone, email, profile_id, status)
		VALUES ($1, $2, $3, $4, 'active')
		ON CONFLICT (phone) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    profile_id = EXCLUDED.profile_id,
		    status = 'active',
		    updated_at = NOW()`,
		name, phone, email, profileID)
	if err != nil {
		return fmt.Errorf("failed to upsert resident: %w", err)
	}
	return nil
}
