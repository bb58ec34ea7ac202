package database

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghostels/booking-backend/internal/models"
)

func newBedTestRepo(t *testing.T) (*BedRepository, *sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewBedRepository(sqlxDB), sqlxDB, mock, func() { db.Close() }
}

func TestFetchBeds(t *testing.T) {
	repo, _, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Returns Matching Beds", func(t *testing.T) {
		rows := sqlmock.NewRows(bedTestColumns)
		addBedRow(rows, "B1", "R1", "R1-01", models.BedStatusAvailable, nil)
		addBedRow(rows, "B2", "R1", "R1-02", models.BedStatusReserved, "MGB123456ABC123")
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN`).
			WithArgs("B1", "B2").
			WillReturnRows(rows)

		beds, err := repo.FetchBeds([]string{"B1", "B2"})
		require.NoError(t, err)
		require.Len(t, beds, 2)
		assert.Equal(t, models.BedStatusAvailable, beds[0].Status)
		require.NotNil(t, beds[1].ReservedBy)
		assert.Equal(t, "MGB123456ABC123", *beds[1].ReservedBy)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Input", func(t *testing.T) {
		beds, err := repo.FetchBeds(nil)
		require.NoError(t, err)
		assert.Nil(t, beds)
	})
}

func TestLockAndFetchBeds(t *testing.T) {
	repo, sqlxDB, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Locks In Id Order Regardless Of Input Order", func(t *testing.T) {
		rows := sqlmock.NewRows(bedTestColumns)
		addBedRow(rows, "B1", "R1", "R1-01", models.BedStatusAvailable, nil)
		addBedRow(rows, "B2", "R1", "R1-02", models.BedStatusAvailable, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM beds WHERE id IN (.+) ORDER BY id FOR UPDATE`).
			WithArgs("B1", "B2").
			WillReturnRows(rows)

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		beds, err := repo.LockAndFetchBeds(tx, []string{"B2", "B1"})
		require.NoError(t, err)
		require.Len(t, beds, 2)
		// Input slice is left alone; only the query binds are reordered.
		assert.Equal(t, "B1", beds[0].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Input Is A No-Op", func(t *testing.T) {
		mock.ExpectBegin()
		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		beds, err := repo.LockAndFetchBeds(tx, nil)
		require.NoError(t, err)
		assert.Nil(t, beds)
	})
}

func TestReserveBed(t *testing.T) {
	repo, sqlxDB, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("MGB123456ABC123", "B1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		require.NoError(t, repo.ReserveBed(tx, "B1", "MGB123456ABC123"))
		require.NoError(t, tx.Commit())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Taken", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("MGB123456ABC123", "B1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		err = repo.ReserveBed(tx, "B1", "MGB123456ABC123")
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, []string{"B1"}, conflictErr.BedIDs)
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOccupyBed(t *testing.T) {
	repo, sqlxDB, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Reservation Marker Mismatch", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("Kasun Perera", "B1", "MGB123456ABC123").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		err = repo.OccupyBed(tx, "B1", "MGB123456ABC123", "Kasun Perera")
		var conflictErr *models.BedConflictError
		require.ErrorAs(t, err, &conflictErr)
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseBeds(t *testing.T) {
	repo, sqlxDB, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Scoped To Bed And Holder", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("B1", "B2", "MGB123456ABC123", "Kasun Perera").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		require.NoError(t, repo.ReleaseBeds(tx, []string{"B1", "B2"}, []string{"MGB123456ABC123", "Kasun Perera"}))
		require.NoError(t, tx.Commit())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Beds Is A No-Op", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := sqlxDB.Beginx()
		require.NoError(t, err)
		require.NoError(t, repo.ReleaseBeds(tx, nil, []string{"MGB123456ABC123"}))
		require.NoError(t, tx.Rollback())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBedByID(t *testing.T) {
	repo, _, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM beds`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		bed, err := repo.GetBedByID("missing")
		require.NoError(t, err)
		assert.Nil(t, bed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetRoomAvailability(t *testing.T) {
	repo, _, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{
		"room_id", "room_number", "total_beds", "available_beds",
		"reserved_beds", "occupied_beds", "maintenance_beds",
	}).AddRow("room-1", "R1", 4, 1, 1, 1, 1)
	mock.ExpectQuery(`SELECT room_id, room_number`).
		WillReturnRows(rows)

	rooms, err := repo.GetRoomAvailability()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 4, rooms[0].TotalBeds)
	assert.Equal(t, 1, rooms[0].AvailableBeds)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMaintenance(t *testing.T) {
	repo, _, mock, closeFn := newBedTestRepo(t)
	defer closeFn()

	t.Run("Only Available Beds", func(t *testing.T) {
		mock.ExpectExec(`UPDATE beds`).
			WithArgs("broken ladder", "B1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetMaintenance("B1", "broken ladder")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not available")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
