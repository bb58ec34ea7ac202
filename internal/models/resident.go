package models

import (
	"time"
)

// ResidentStatus represents the status of a resident profile
type ResidentStatus string

const (
	ResidentStatusActive     ResidentStatus = "active"
	ResidentStatusCheckedOut ResidentStatus = "checked_out"
	ResidentStatusInactive   ResidentStatus = "inactive"
)

// Resident is the local read model of a resident profile. Profiles are
// created downstream after confirmation; this table is consulted only for
// contact-uniqueness checks and list views.
type Resident struct {
	ID        string         `json:"id" db:"id"`
	ProfileID *string        `json:"profile_id,omitempty" db:"profile_id"`
	Name      string         `json:"name" db:"name"`
	Phone     string         `json:"phone" db:"phone"`
	Email     *string        `json:"email,omitempty" db:"email"`
	Status    ResidentStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
