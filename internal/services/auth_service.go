package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/models"
	"github.com/mghostels/booking-backend/pkg/jwt"
)

// ErrInvalidCredentials is returned for a bad username/password pair or a
// disabled account. Deliberately one error so callers cannot probe which
// usernames exist.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService authenticates staff accounts and issues token pairs
type AuthService struct {
	staffRepo         *database.StaffRepository
	jwtService        *jwt.Service
	accessTokenExpiry time.Duration
	bcryptCost        int
	logger            *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(staffRepo *database.StaffRepository, jwtService *jwt.Service, accessTokenExpiry time.Duration, bcryptCost int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		staffRepo:         staffRepo,
		jwtService:        jwtService,
		accessTokenExpiry: accessTokenExpiry,
		bcryptCost:        bcryptCost,
		logger:            logger,
	}
}

// Login verifies the credentials and returns a fresh token pair
func (s *AuthService) Login(req *models.LoginRequest) (*models.TokenResponse, error) {
	staff, err := s.staffRepo.GetByUsername(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff account: %w", err)
	}
	if staff == nil || staff.Status != "active" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithField("username", req.Username).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(staff)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	staff, err := s.staffRepo.GetByUsername(claims.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff account: %w", err)
	}
	if staff == nil || staff.Status != "active" {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(staff)
}

// ChangePassword verifies the current password and stores a new hash for the
// authenticated staff account.
func (s *AuthService) ChangePassword(username, currentPassword, newPassword string) error {
	staff, err := s.staffRepo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("failed to look up staff account: %w", err)
	}
	if staff == nil || staff.Status != "active" {
		return ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(currentPassword)); err != nil {
		s.logger.WithField("username", username).Warn("Password change with wrong current password")
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.staffRepo.UpdatePassword(staff.ID, string(hash)); err != nil {
		return err
	}

	s.logger.WithField("username", username).Info("Staff password changed")
	return nil
}

func (s *AuthService) issueTokens(staff *models.Staff) (*models.TokenResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(staff.ID, staff.Username, staff.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(staff.ID, staff.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.accessTokenExpiry),
	}, nil
}
