package models

import (
	"time"
)

// BedStatus represents the status of a bed
type BedStatus string

const (
	BedStatusAvailable   BedStatus = "available"
	BedStatusReserved    BedStatus = "reserved"
	BedStatusOccupied    BedStatus = "occupied"
	BedStatusMaintenance BedStatus = "maintenance"
)

// GenderAffinity marks which gender a bed is intended for.
// Informational only; the allocation flow never rejects on a mismatch.
type GenderAffinity string

const (
	GenderAffinityMale   GenderAffinity = "male"
	GenderAffinityFemale GenderAffinity = "female"
	GenderAffinityAny    GenderAffinity = "any"
)

// Bed represents a single allocatable bed in a room
type Bed struct {
	ID         string         `json:"id" db:"id"`
	RoomID     string         `json:"room_id" db:"room_id"`
	RoomNumber string         `json:"room_number" db:"room_number"`
	BedNumber  string         `json:"bed_number" db:"bed_number"` // room + sequence, display only
	Status     BedStatus      `json:"status" db:"status"`
	Gender     GenderAffinity `json:"gender" db:"gender"`

	// ReservedBy holds the booking reference while reserved and the guest
	// identity once occupied. It is the marker the engine compares against
	// when confirming or releasing; OccupantName is display only.
	ReservedBy   *string `json:"reserved_by,omitempty" db:"reserved_by"`
	OccupantName *string `json:"occupant_name,omitempty" db:"occupant_name"`

	MaintenanceReason *string   `json:"maintenance_reason,omitempty" db:"maintenance_reason"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// RoomAvailability summarizes bed availability for a room
type RoomAvailability struct {
	RoomID          string `json:"room_id" db:"room_id"`
	RoomNumber      string `json:"room_number" db:"room_number"`
	TotalBeds       int    `json:"total_beds" db:"total_beds"`
	AvailableBeds   int    `json:"available_beds" db:"available_beds"`
	ReservedBeds    int    `json:"reserved_beds" db:"reserved_beds"`
	OccupiedBeds    int    `json:"occupied_beds" db:"occupied_beds"`
	MaintenanceBeds int    `json:"maintenance_beds" db:"maintenance_beds"`
}

// SetMaintenanceRequest is used to put a bed into or out of maintenance
type SetMaintenanceRequest struct {
	Reason string `json:"reason"`
}
