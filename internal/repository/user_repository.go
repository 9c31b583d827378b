package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"commerce-service/internal/models"
)

// UserRepository persists accounts and their password reset profiles
type UserRepository interface {
	// Create inserts the user together with its empty profile
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	// Update saves name, email and password hash
	Update(ctx context.Context, user *models.User) error

	GetProfileByResetToken(ctx context.Context, tokenHash string) (*models.Profile, error)
	// SetResetToken overwrites any prior token of the user
	SetResetToken(ctx context.Context, userID uint, tokenHash string, expire time.Time) error
	// ConsumeResetToken clears the token and stores the new password hash. It returns ErrNotFound
	// when the profile no longer holds tokenHash, so a token is consumed at most once.
	ConsumeResetToken(ctx context.Context, profileID uint, userID uint, tokenHash string, passwordHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Profile == nil {
		user.Profile = &models.Profile{}
	}
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("first_name", "last_name", "email", "password_hash").
		Updates(user).Error
	return translateError(err)
}

func (r *userRepository) GetProfileByResetToken(ctx context.Context, tokenHash string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_token <> ''", tokenHash).
		First(&profile).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}

func (r *userRepository) SetResetToken(ctx context.Context, userID uint, tokenHash string, expire time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		if err == gorm.ErrRecordNotFound {
			profile = models.Profile{UserID: userID}
		} else if err != nil {
			return err
		}
		profile.ResetPasswordToken = tokenHash
		profile.ResetPasswordExpire = &expire
		return tx.Save(&profile).Error
	})
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, profileID uint, userID uint, tokenHash string, passwordHash string) error {
	if tokenHash == "" {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cleared := tx.Model(&models.Profile{}).
			Where("id = ? AND reset_password_token = ?", profileID, tokenHash).
			Updates(map[string]interface{}{
				"reset_password_token":  "",
				"reset_password_expire": nil,
			})
		if cleared.Error != nil {
			return cleared.Error
		}
		if cleared.RowsAffected == 0 {
			return ErrNotFound
		}

		result := tx.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", passwordHash)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
