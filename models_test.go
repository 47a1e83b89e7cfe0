package users_test

import (
	"testing"
	"time"

	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStatusDerivation(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name     string
		account  *users.Account
		expected users.AccountStatus
	}{
		{
			name:     "fresh registration is pending",
			account:  &users.Account{},
			expected: users.StatusPending,
		},
		{
			name:     "verified account is active",
			account:  &users.Account{EmailVerified: true},
			expected: users.StatusActive,
		},
		{
			name:     "lock wins over verification",
			account:  &users.Account{EmailVerified: true, IsLocked: true},
			expected: users.StatusLocked,
		},
		{
			name:     "unverified locked account is locked",
			account:  &users.Account{IsLocked: true},
			expected: users.StatusLocked,
		},
		{
			name:     "deleted account is archived regardless of flags",
			account:  &users.Account{EmailVerified: true, IsLocked: true, DeletedAt: &now},
			expected: users.StatusArchived,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.account.Status())
		})
	}
}

func TestAccountFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&users.Account{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "Ada", (&users.Account{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Lovelace", (&users.Account{LastName: "Lovelace"}).FullName())
	assert.Equal(t, "ada42", (&users.Account{Nickname: "ada42"}).FullName())
	assert.Equal(t, "", (&users.Account{}).FullName())
}

func TestAccountPublicStripsCredentials(t *testing.T) {
	id := uuid.New()
	record := &users.Account{
		ID:             id,
		Email:          "ada@example.com",
		Role:           users.RoleManager,
		PasswordHash:   "$2a$12$secret",
		EmailVerified:  true,
		IsProfessional: true,
	}

	pub := record.Public()
	require.NotNil(t, pub)
	assert.Equal(t, id.String(), pub.ID)
	assert.Equal(t, "ada@example.com", pub.Email)
	assert.Equal(t, users.RoleManager, pub.Role)
	assert.True(t, pub.EmailVerified)
	assert.True(t, pub.IsProfessional)

	var nilAccount *users.Account
	assert.Nil(t, nilAccount.Public())
}

func TestNewAccountPage(t *testing.T) {
	records := []*users.Account{
		{ID: uuid.New(), Email: "a@example.com"},
		{ID: uuid.New(), Email: "b@example.com"},
	}

	page := users.NewAccountPage(records, 10, 2, 2)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, "a@example.com", page.Items[0].Email)
}
