package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenLength   = 40
	resetTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PasswordService hashes passwords and issues password reset tokens
type PasswordService struct {
	cost int
}

// NewPasswordService creates a password service. A zero cost selects bcrypt.DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordService{cost: cost}
}

// HashPassword hashes a password using bcrypt
func (s *PasswordService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword reports whether password matches the stored hash
func (s *PasswordService) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateResetToken returns a random 40 character alphanumeric token
func (s *PasswordService) GenerateResetToken() (string, error) {
	max := big.NewInt(int64(len(resetTokenAlphabet)))
	token := make([]byte, resetTokenLength)
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reset token: %w", err)
		}
		token[i] = resetTokenAlphabet[n.Int64()]
	}
	return string(token), nil
}

// HashResetToken returns the digest stored in place of the raw token
func (s *PasswordService) HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
