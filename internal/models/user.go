package models

import (
	"time"
)

// DefaultPasswordResetTokenExpiry is how long an issued reset token stays valid
const DefaultPasswordResetTokenExpiry = 30 * time.Minute

// User is a storefront account. The email doubles as the username.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(150)"`
	LastName     string    `json:"last_name" gorm:"type:varchar(150)"`
	Email        string    `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	IsAdmin      bool      `json:"is_admin" gorm:"not null;default:false"`
	Profile      *Profile  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Username returns the login name of the user
func (u *User) Username() string {
	return u.Email
}

// Profile carries the password reset state of a user.
// ResetPasswordToken holds the SHA-256 hex digest of the issued token, "" when unset.
type Profile struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	UserID              uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	ResetPasswordToken  string     `json:"-" gorm:"type:varchar(64);index;not null;default:''"`
	ResetPasswordExpire *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// HasPendingReset reports whether a reset token is currently issued
func (p *Profile) HasPendingReset() bool {
	return p.ResetPasswordToken != "" && p.ResetPasswordExpire != nil
}

// ResetExpired reports whether the issued token is past its expiry at the given instant
func (p *Profile) ResetExpired(now time.Time) bool {
	return p.ResetPasswordExpire == nil || now.After(*p.ResetPasswordExpire)
}

// UserResponse is the serialized form of the current user
type UserResponse struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"is_admin"`
}

// ToResponse converts a User to its API representation
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username(),
		IsAdmin:   u.IsAdmin,
	}
}
