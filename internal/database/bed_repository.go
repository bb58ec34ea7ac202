package database

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/mghostels/booking-backend/internal/models"
)

const bedColumns = `
	id, room_id, room_number, bed_number, status, gender,
	reserved_by, occupant_name, maintenance_reason, created_at, updated_at`

// BedRepository handles bed inventory database operations
type BedRepository struct {
	db *sqlx.DB
}

// NewBedRepository creates a new BedRepository
func NewBedRepository(db *sqlx.DB) *BedRepository {
	return &BedRepository{db: db}
}

// FetchBeds retrieves beds by id outside any transaction. Used by the
// validator for pre-flight checks; the engine re-reads under lock.
func (r *BedRepository) FetchBeds(ids []string) ([]models.Bed, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+bedColumns+`
		FROM beds
		WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build bed fetch query: %w", err)
	}

	query = r.db.Rebind(query)
	var beds []models.Bed
	if err := r.db.Select(&beds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch beds: %w", err)
	}
	return beds, nil
}

// LockAndFetchBeds retrieves beds by id inside the given transaction, taking
// row locks so a concurrent reservation blocks until this transaction ends.
// Rows are locked in id order; without it two transactions over overlapping
// bed sets can acquire locks in opposite orders and deadlock.
func (r *BedRepository) LockAndFetchBeds(tx *sqlx.Tx, ids []string) ([]models.Bed, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	query, args, err := sqlx.In(`
		SELECT `+bedColumns+`
		FROM beds
		WHERE id IN (?)
		ORDER BY id
		FOR UPDATE`, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to build bed lock query: %w", err)
	}

	query = tx.Rebind(query)
	var beds []models.Bed
	if err := tx.Select(&beds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to lock beds: %w", err)
	}
	return beds, nil
}

// LockAnyAvailableBed picks and locks one available bed inside the given
// transaction. Used to resolve the auto-assign sentinel for single-guest
// bookings. SKIP LOCKED keeps two auto-assigning creations off the same row.
func (r *BedRepository) LockAnyAvailableBed(tx *sqlx.Tx) (*models.Bed, error) {
	bed := &models.Bed{}
	err := tx.Get(bed, `
		SELECT `+bedColumns+`
		FROM beds
		WHERE status = 'available'
		ORDER BY room_number, bed_number
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)
	if err != nil {
		return nil, err
	}
	return bed, nil
}

// ReserveBed transitions an available bed to reserved within the transaction,
// tagging it with the booking reference as holder. The status guard makes the
// write a no-op when a concurrent transaction got there first.
func (r *BedRepository) ReserveBed(tx *sqlx.Tx, bedID, bookingReference string) error {
	result, err := tx.Exec(`
		UPDATE beds
		SET status = 'reserved',
		    reserved_by = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'available'`,
		bookingReference, bedID)
	if err != nil {
		return fmt.Errorf("failed to reserve bed %s: %w", bedID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve bed %s: %w", bedID, err)
	}
	if rows == 0 {
		return &models.BedConflictError{BedIDs: []string{bedID}}
	}
	return nil
}

// OccupyBed transitions a reserved bed to occupied within the transaction.
// The holder marker switches from the booking reference to the guest identity.
func (r *BedRepository) OccupyBed(tx *sqlx.Tx, bedID, bookingReference, guestName string) error {
	result, err := tx.Exec(`
		UPDATE beds
		SET status = 'occupied',
		    reserved_by = $1,
		    occupant_name = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'reserved' AND reserved_by = $3`,
		guestName, bedID, bookingReference)
	if err != nil {
		return fmt.Errorf("failed to occupy bed %s: %w", bedID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to occupy bed %s: %w", bedID, err)
	}
	if rows == 0 {
		return &models.BedConflictError{BedIDs: []string{bedID}}
	}
	return nil
}

// ReleaseBeds returns the given beds to available when they are reserved or
// occupied with one of the given holder markers, clearing the holder. Used by
// cancellation; beds in maintenance or re-held by another booking are left
// untouched.
func (r *BedRepository) ReleaseBeds(tx *sqlx.Tx, bedIDs, holders []string) error {
	if len(bedIDs) == 0 || len(holders) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE beds
		SET status = 'available',
		    reserved_by = NULL,
		    occupant_name = NULL,
		    updated_at = NOW()
		WHERE id IN (?)
		  AND reserved_by IN (?)
		  AND status IN ('reserved', 'occupied')`, bedIDs, holders)
	if err != nil {
		return fmt.Errorf("failed to build bed release query: %w", err)
	}

	query = tx.Rebind(query)
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to release beds: %w", err)
	}
	return nil
}

// ============================================================================
// DIRECTORY / ADMIN OPERATIONS
// ============================================================================

// ListBeds retrieves beds, optionally filtered by status
func (r *BedRepository) ListBeds(status *models.BedStatus, limit, offset int) ([]models.Bed, error) {
	var beds []models.Bed
	if status != nil {
		err := r.db.Select(&beds, `
			SELECT `+bedColumns+`
			FROM beds
			WHERE status = $1
			ORDER BY room_number, bed_number
			LIMIT $2 OFFSET $3`, *status, limit, offset)
		return beds, err
	}

	err := r.db.Select(&beds, `
		SELECT `+bedColumns+`
		FROM beds
		ORDER BY room_number, bed_number
		LIMIT $1 OFFSET $2`, limit, offset)
	return beds, err
}

// GetBedByID retrieves a single bed. Returns nil when no bed exists.
func (r *BedRepository) GetBedByID(id string) (*models.Bed, error) {
	bed := &models.Bed{}
	err := r.db.Get(bed, `
		SELECT `+bedColumns+`
		FROM beds
		WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bed: %w", err)
	}
	return bed, nil
}

// GetRoomAvailability summarizes bed availability per room
func (r *BedRepository) GetRoomAvailability() ([]models.RoomAvailability, error) {
	var rooms []models.RoomAvailability
	err := r.db.Select(&rooms, `
		SELECT room_id, room_number,
		       COUNT(*) AS total_beds,
		       COUNT(*) FILTER (WHERE status = 'available') AS available_beds,
		       COUNT(*) FILTER (WHERE status = 'reserved') AS reserved_beds,
		       COUNT(*) FILTER (WHERE status = 'occupied') AS occupied_beds,
		       COUNT(*) FILTER (WHERE status = 'maintenance') AS maintenance_beds
		FROM beds
		GROUP BY room_id, room_number
		ORDER BY room_number`)
	return rooms, err
}

// SetMaintenance moves an available bed into maintenance. Reserved and
// occupied beds are never touched here; those belong to the booking flow.
func (r *BedRepository) SetMaintenance(bedID, reason string) error {
	result, err := r.db.Exec(`
		UPDATE beds
		SET status = 'maintenance',
		    maintenance_reason = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'available'`,
		reason, bedID)
	if err != nil {
		return fmt.Errorf("failed to set bed maintenance: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("bed %s is not available for maintenance", bedID)
	}
	return nil
}

// ClearMaintenance returns a maintenance bed to available
func (r *BedRepository) ClearMaintenance(bedID string) error {
	result, err := r.db.Exec(`
		UPDATE beds
		SET status = 'available',
		    maintenance_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'maintenance'`,
		bedID)
	if err != nil {
		return fmt.Errorf("failed to clear bed maintenance: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("bed %s is not in maintenance", bedID)
	}
	return nil
}
