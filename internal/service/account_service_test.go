package service

import (
	"context"
	"testing"
	"time"

	"digital-store/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userByEmail(t *testing.T, users *fakeUsers, email string) *models.User {
	t.Helper()
	user, err := users.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return user
}

func accountFixture(mailEnabled bool) (*AccountService, *fakeUsers, *fakeSessions, *fakeMailer) {
	users := newFakeUsers()
	sessions := newFakeSessions()
	mailer := &fakeMailer{enabled: mailEnabled}
	svc := NewAccountService(users, sessions, mailer, "http://localhost:8080")
	return svc, users, sessions, mailer
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	svc, users, _, mailer := accountFixture(true)

	result, err := svc.Signup(ctx, "alice", "Alice@Example.com", "password123", "password123")
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.False(t, result.AutoConfirmed)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent)

	user, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsConfirmed)
	require.NotNil(t, user.ConfirmationToken)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := accountFixture(true)

	cases := []struct {
		name            string
		username        string
		email           string
		password        string
		confirmPassword string
	}{
		{"short username", "al", "alice@example.com", "password123", "password123"},
		{"bad email", "alice", "not-an-email", "password123", "password123"},
		{"short password", "alice", "alice@example.com", "pass", "pass"},
		{"mismatch", "alice", "alice@example.com", "password123", "password124"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.username, tc.email, tc.password, tc.confirmPassword)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSignupDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "alice", "other@example.com", "password123", "password123")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Signup(ctx, "bob", "alice@example.com", "password123", "password123")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignupAutoConfirmWithoutMail(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := accountFixture(false)

	result, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.True(t, result.AutoConfirmed)

	user, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsConfirmed)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, sessions, _ := accountFixture(false)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)

	// by username
	token, user, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)
	assert.Contains(t, sessions.sessions, token)

	// by email
	_, _, err = svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMixedCaseUsername(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := accountFixture(false)

	_, err := svc.Signup(ctx, "Alice", "Alice@Example.com", "password123", "password123")
	require.NoError(t, err)

	// username matches exactly as registered
	_, _, err = svc.Login(ctx, "Alice", "password123")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// email matches regardless of case
	_, _, err = svc.Login(ctx, "ALICE@example.COM", "password123")
	assert.NoError(t, err)
}

func TestLoginUnconfirmed(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.ErrorIs(t, err, ErrUnconfirmedAccount)
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	user, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	token := *user.ConfirmationToken

	require.NoError(t, svc.Confirm(ctx, token))

	user, err = users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsConfirmed)

	// now the login goes through
	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Confirm(ctx, "bogus-token"), ErrInvalidToken)
}

func TestCurrentUserAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := accountFixture(false)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.CurrentUser(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, users, _, mailer := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, *userByEmail(t, users, "alice@example.com").ConfirmationToken))

	// unknown address reports success all the same
	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	assert.Len(t, mailer.sent, 2)

	user := userByEmail(t, users, "alice@example.com")
	require.NotNil(t, user.ResetToken)
	token := *user.ResetToken

	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "short", "short"), ErrValidation)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword1", "newpassword1"))

	// token is single-use
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "newpassword2", "newpassword2"), ErrInvalidToken)

	_, _, err = svc.Login(ctx, "alice", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "alice", "newpassword1")
	assert.NoError(t, err)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	user := userByEmail(t, users, "alice@example.com")

	require.NoError(t, users.SetResetToken(ctx, user.ID, "expired-token", time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, svc.ResetPassword(ctx, "expired-token", "newpassword1", "newpassword1"), ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := accountFixture(false)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	user := userByEmail(t, users, "alice@example.com")

	assert.ErrorIs(t, svc.ChangePassword(ctx, user, "wrong", "newpassword1", "newpassword1"), ErrValidation)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user, "password123", "newpassword1", "different"), ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, user, "password123", "newpassword1", "newpassword1"))
	_, _, err = svc.Login(ctx, "alice", "newpassword1")
	assert.NoError(t, err)
}

func TestResendConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, users, _, mailer := accountFixture(true)

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "password123", "password123")
	require.NoError(t, err)
	first := *userByEmail(t, users, "alice@example.com").ConfirmationToken

	require.NoError(t, svc.ResendConfirmation(ctx, "alice@example.com"))
	second := *userByEmail(t, users, "alice@example.com").ConfirmationToken
	assert.NotEqual(t, first, second)
	assert.Len(t, mailer.sent, 2)

	// unknown and already-confirmed addresses are silent no-ops
	require.NoError(t, svc.ResendConfirmation(ctx, "nobody@example.com"))
	require.NoError(t, svc.Confirm(ctx, second))
	require.NoError(t, svc.ResendConfirmation(ctx, "alice@example.com"))
	assert.Len(t, mailer.sent, 2)
}
