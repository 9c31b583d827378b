package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-service/internal/models"
	"commerce-service/internal/repository"
)

func resetTokenFrom(t *testing.T, message string) string {
	t.Helper()
	const prefix = "Your password reset token is: "
	require.True(t, strings.HasPrefix(message, prefix), "unexpected body %q", message)
	return strings.TrimPrefix(message, prefix)
}

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.accounts.Register(ctx, models.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     " Jane@Example.com ",
		Password:  "secret123",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "jane@example.com", user.Username())
	assert.True(t, env.passwords.VerifyPassword(user.PasswordHash, "secret123"))

	profile, ok := env.store.Profile(user.ID)
	require.True(t, ok)
	assert.Empty(t, profile.ResetPasswordToken)
}

func TestAccountService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)

	_, err := env.accounts.Register(context.Background(), models.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Again",
		Email:     "JANE@example.com",
		Password:  "secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, "User already exists", Message(err))
}

func TestAccountService_Login(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser("jane@example.com", true)
	ctx := context.Background()

	resp, err := env.accounts.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := env.jwt.ValidateAccessToken(resp.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "jane@example.com", password: "nope"},
		{name: "unknown email", email: "ghost@example.com", password: "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Login(ctx, models.LoginRequest{Email: tt.email, Password: tt.password})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCredentials))
			assert.Equal(t, "Invalid email or password", Message(err))
		})
	}
}

func TestAccountService_UpdateUser(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser("jane@example.com", false)
	env.seedUser("taken@example.com", false)
	ctx := context.Background()

	updated, err := env.accounts.UpdateUser(ctx, user.ID, models.UpdateUserRequest{
		FirstName: "Janet",
		LastName:  "Doe",
		Email:     "janet@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "janet@example.com", updated.Email)

	// empty password keeps the old one
	_, err = env.accounts.Login(ctx, models.LoginRequest{Email: "janet@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = env.accounts.UpdateUser(ctx, user.ID, models.UpdateUserRequest{
		FirstName: "Janet",
		LastName:  "Doe",
		Email:     "janet@example.com",
		Password:  "newpass1",
	})
	require.NoError(t, err)
	_, err = env.accounts.Login(ctx, models.LoginRequest{Email: "janet@example.com", Password: "newpass1"})
	require.NoError(t, err)

	_, err = env.accounts.UpdateUser(ctx, user.ID, models.UpdateUserRequest{
		FirstName: "Janet",
		LastName:  "Doe",
		Email:     "taken@example.com",
	})
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestAccountService_GetUserNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.accounts.GetUser(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "User not found", Message(err))
}

func TestAccountService_PasswordResetLifecycle(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser("jane@example.com", false)
	ctx := context.Background()

	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))

	sent := env.mailer.last()
	assert.Equal(t, "jane@example.com", sent.To)
	assert.Equal(t, "Requested Password Reset Link", sent.Subject)
	token := resetTokenFrom(t, sent.Body)
	assert.Len(t, token, 40)

	profile, ok := env.store.Profile(user.ID)
	require.True(t, ok)
	assert.Equal(t, env.passwords.HashResetToken(token), profile.ResetPasswordToken)
	require.NotNil(t, profile.ResetPasswordExpire)

	err := env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
	require.NoError(t, err)

	_, err = env.accounts.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "newpass1"})
	require.NoError(t, err)

	profile, _ = env.store.Profile(user.ID)
	assert.Empty(t, profile.ResetPasswordToken)
	assert.Nil(t, profile.ResetPasswordExpire)

	// a consumed token cannot be used again
	err = env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "another1", ConfirmPassword: "another1"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Not found.", Message(err))
}

func TestAccountService_ResetTokenConsumedOnce(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)
	ctx := context.Background()

	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	token := resetTokenFrom(t, env.mailer.last().Body)
	digest := env.passwords.HashResetToken(token)

	// both callers looked the token up before either consumed it
	profile, err := env.store.Users().GetProfileByResetToken(ctx, digest)
	require.NoError(t, err)

	require.NoError(t, env.store.Users().ConsumeResetToken(ctx, profile.ID, profile.UserID, digest, "hash-one"))
	err = env.store.Users().ConsumeResetToken(ctx, profile.ID, profile.UserID, digest, "hash-two")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	user, err := env.store.Users().GetByID(ctx, profile.UserID)
	require.NoError(t, err)
	assert.Equal(t, "hash-one", user.PasswordHash)
}

func TestAccountService_ConcurrentResetsWithSameToken(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)
	ctx := context.Background()

	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	token := resetTokenFrom(t, env.mailer.last().Body)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrNotFound), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestAccountService_ForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv()
	err := env.accounts.ForgotPassword(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "User not found", Message(err))
	assert.Empty(t, env.mailer.messages)
}

func TestAccountService_ForgotPasswordDeliveryFailure(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)
	env.mailer.err = errors.New("smtp down")

	err := env.accounts.ForgotPassword(context.Background(), "jane@example.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestAccountService_SecondForgotReplacesToken(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)
	ctx := context.Background()

	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	first := resetTokenFrom(t, env.mailer.last().Body)
	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	second := resetTokenFrom(t, env.mailer.last().Body)
	require.NotEqual(t, first, second)

	err := env.accounts.ResetPassword(ctx, first, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = env.accounts.ResetPassword(ctx, second, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
	assert.NoError(t, err)
}

func TestAccountService_ResetPasswordExpired(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser("jane@example.com", false)
	ctx := context.Background()

	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	env.accounts.now = func() time.Time { return issued }
	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	token := resetTokenFrom(t, env.mailer.last().Body)

	env.accounts.now = func() time.Time { return issued.Add(31 * time.Minute) }
	err := env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
	assert.True(t, errors.Is(err, ErrTokenExpired))
	assert.Equal(t, "Token is expired", Message(err))

	// the expired token is left in place and the password unchanged
	profile, _ := env.store.Profile(user.ID)
	assert.Equal(t, env.passwords.HashResetToken(token), profile.ResetPasswordToken)
	_, err = env.accounts.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	assert.NoError(t, err)
}

func TestAccountService_ResetPasswordMismatch(t *testing.T) {
	env := newTestEnv()
	env.seedUser("jane@example.com", false)
	ctx := context.Background()

	require.NoError(t, env.accounts.ForgotPassword(ctx, "jane@example.com"))
	token := resetTokenFrom(t, env.mailer.last().Body)

	err := env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass2"})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Passwords has to match", Message(err))

	// still usable after a mismatch
	err = env.accounts.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpass1", ConfirmPassword: "newpass1"})
	assert.NoError(t, err)
}
