package accounts

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/papertrade/internal/domain"
)

func setupAccountsDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			cash          TEXT NOT NULL CHECK (CAST(cash AS REAL) >= 0),
			created_at    INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(setupAccountsDB(t), log)
	return NewService(repo, "test-secret", decimal.RequireFromString("10000.00"), log)
}

func TestRegister_Success(t *testing.T) {
	svc := newTestService(t)

	account, err := svc.Register("alice", "correct horse", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Positive(t, account.ID)
	assert.True(t, account.Cash.Equal(decimal.RequireFromString("10000.00")))

	// Stored hash must verify, and must not be the plaintext
	stored, err := svc.repo.GetByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register("alice", "correct horse", "correct horse")
	require.NoError(t, err)

	_, err = svc.Register("alice", "other password", "other password")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name         string
		username     string
		password     string
		confirmation string
	}{
		{"blank username", "", "correct horse", "correct horse"},
		{"blank password", "alice", "", ""},
		{"short password", "alice", "short", "short"},
		{"mismatched confirmation", "alice", "correct horse", "wrong horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.username, tt.password, tt.confirmation)
			assert.True(t, domain.IsValidationError(err), "got %v", err)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	svc := newTestService(t)

	registered, err := svc.Register("alice", "correct horse", "correct horse")
	require.NoError(t, err)

	token, account, err := svc.Login("alice", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, registered.ID, account.ID)

	// Round-trip: the token resolves back to the same user
	userID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register("alice", "correct horse", "correct horse")
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login("nobody", "whatever password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := NewService(svc.repo, "different-secret", decimal.RequireFromString("10000.00"), zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.Register("alice", "correct horse", "correct horse")
	require.NoError(t, err)

	token, _, err := other.Login("alice", "correct horse")
	require.NoError(t, err)

	// Token signed with the other secret must not verify here
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
