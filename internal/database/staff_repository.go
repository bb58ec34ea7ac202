package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mghostels/booking-backend/internal/models"
)

// StaffRepository handles staff account database operations
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetByUsername returns the staff account with the given username, or nil
func (r *StaffRepository) GetByUsername(username string) (*models.Staff, error) {
	staff := &models.Staff{}
	var roles pq.StringArray
	err := r.db.QueryRowx(`
		SELECT id, username, name, phone, password_hash, roles, status, created_at, updated_at
		FROM staff
		WHERE username = $1`, username).
		Scan(&staff.ID, &staff.Username, &staff.Name, &staff.Phone,
			&staff.PasswordHash, &roles, &staff.Status, &staff.CreatedAt, &staff.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff by username: %w", err)
	}
	staff.Roles = roles
	return staff, nil
}

// UpdatePassword replaces the stored password hash for a staff account
func (r *StaffRepository) UpdatePassword(staffID uuid.UUID, passwordHash string) error {
	result, err := r.db.Exec(`
		UPDATE staff
		SET password_hash = $1,
		    updated_at = NOW()
		WHERE id = $2`,
		passwordHash, staffID)
	if err != nil {
		return fmt.Errorf("failed to update staff password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update staff password: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("staff account %s not found", staffID)
	}
	return nil
}
