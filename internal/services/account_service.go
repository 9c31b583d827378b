package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"commerce-service/internal/email"
	"commerce-service/internal/metrics"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"
)

const resetEmailSubject = "Requested Password Reset Link"

// AccountService handles registration, login and the password reset lifecycle
type AccountService struct {
	store       repository.Store
	passwords   *PasswordService
	jwt         *JWTService
	mailer      email.Sender
	logger      *logrus.Logger
	resetExpiry time.Duration
	now         func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(store repository.Store, passwords *PasswordService, jwt *JWTService, mailer email.Sender, logger *logrus.Logger) *AccountService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AccountService{
		store:       store,
		passwords:   passwords,
		jwt:         jwt,
		mailer:      mailer,
		logger:      logger,
		resetExpiry: models.DefaultPasswordResetTokenExpiry,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and its empty profile
func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	emailAddr := normalizeEmail(req.Email)

	taken, err := s.store.Users().EmailTaken(ctx, emailAddr, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, newError(ErrAlreadyExists, "User already exists")
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        emailAddr,
		PasswordHash: hash,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrAlreadyExists, "User already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login checks credentials and issues an access token
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrInvalidCredentials, "Invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.passwords.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, newError(ErrInvalidCredentials, "Invalid email or password")
	}

	token, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Access:    token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwt.Expiry().Seconds()),
	}, nil
}

// GetUser returns the user with the given id
func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateUser replaces name and email. An empty password leaves the current one in place.
func (s *AccountService) UpdateUser(ctx context.Context, id uint, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	emailAddr := normalizeEmail(req.Email)
	taken, err := s.store.Users().EmailTaken(ctx, emailAddr, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, newError(ErrAlreadyExists, "User already exists")
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Email = emailAddr

	if req.Password != "" {
		hash, err := s.passwords.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrAlreadyExists, "User already exists")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a fresh reset token, replacing any earlier one, and emails it to the user
func (s *AccountService) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordPasswordReset("forgot", "unknown_user")
			return newError(ErrNotFound, "User not found")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.passwords.GenerateResetToken()
	if err != nil {
		return err
	}

	expire := s.now().Add(s.resetExpiry)
	if err := s.store.Users().SetResetToken(ctx, user.ID, s.passwords.HashResetToken(token), expire); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	message := &email.Message{
		To:      user.Email,
		Subject: resetEmailSubject,
		Body:    fmt.Sprintf("Your password reset token is: %s", token),
	}
	if err := s.mailer.Send(ctx, message); err != nil {
		metrics.RecordPasswordReset("forgot", "delivery_failed")
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  user.ID,
			"provider": s.mailer.GetName(),
		}).Error("Failed to send password reset email")
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	metrics.RecordPasswordReset("forgot", "sent")
	s.logger.WithField("user_id", user.ID).Info("Password reset token issued")
	return nil
}

// ResetPassword consumes a reset token and stores the new password
func (s *AccountService) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error {
	digest := s.passwords.HashResetToken(token)
	profile, err := s.store.Users().GetProfileByResetToken(ctx, digest)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordPasswordReset("reset", "unknown_token")
			return newError(ErrNotFound, "Not found.")
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	if profile.ResetExpired(s.now()) {
		metrics.RecordPasswordReset("reset", "expired")
		return newError(ErrTokenExpired, "Token is expired")
	}

	if req.Password != req.ConfirmPassword {
		return newError(ErrValidation, "Passwords has to match")
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return err
	}

	if err := s.store.Users().ConsumeResetToken(ctx, profile.ID, profile.UserID, digest, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordPasswordReset("reset", "unknown_token")
			return newError(ErrNotFound, "Not found.")
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	metrics.RecordPasswordReset("reset", "completed")
	s.logger.WithField("user_id", profile.UserID).Info("Password reset completed")
	return nil
}
