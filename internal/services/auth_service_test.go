package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
	"github.com/mghostels/booking-backend/pkg/jwt"
)

func newAuthTestService(t *testing.T) (*AuthService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	jwtService := jwt.NewService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	svc := NewAuthService(database.NewStaffRepository(sqlxDB), jwtService, 15*time.Minute, bcrypt.MinCost, logger)
	return svc, mock, func() { db.Close() }
}

func expectStaffRow(mock sqlmock.Sqlmock, username, passwordHash, status string) {
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM staff`).
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "name", "phone", "password_hash", "roles", "status", "created_at", "updated_at",
		}).AddRow(uuid.New(), username, "Warden One", "0771234567", passwordHash,
			pq.StringArray{"warden"}, status, now, now))
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "active")

		tokens, err := svc.Login(&models.LoginRequest{Username: "warden01", Password: "correct-horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.True(t, tokens.ExpiresAt.After(time.Now()))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong Password", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "active")

		_, err := svc.Login(&models.LoginRequest{Username: "warden01", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown Username", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		mock.ExpectQuery(`SELECT (.+) FROM staff`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := svc.Login(&models.LoginRequest{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Disabled Account", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "disabled")

		_, err := svc.Login(&models.LoginRequest{Username: "warden01", Password: "correct-horse"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "active")
		tokens, err := svc.Login(&models.LoginRequest{Username: "warden01", Password: "correct-horse"})
		require.NoError(t, err)

		expectStaffRow(mock, "warden01", string(hash), "active")
		refreshed, err := svc.Refresh(tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Garbage Token", func(t *testing.T) {
		svc, _, closeFn := newAuthTestService(t)
		defer closeFn()

		_, err := svc.Refresh("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "active")
		mock.ExpectExec(`UPDATE staff`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.ChangePassword("warden01", "correct-horse", "battery-staple")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong Current Password", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "active")

		err := svc.ChangePassword("warden01", "wrong", "battery-staple")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Disabled Account", func(t *testing.T) {
		svc, mock, closeFn := newAuthTestService(t)
		defer closeFn()

		expectStaffRow(mock, "warden01", string(hash), "disabled")

		err := svc.ChangePassword("warden01", "correct-horse", "battery-staple")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
