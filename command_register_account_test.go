package users_test

import (
	"context"
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandlerCreatesAccount(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewRegisterAccountHandler(svc)

	created := &users.Account{
		ID:    uuid.New(),
		Email: "jane@example.com",
		Role:  users.RoleAuthenticated,
	}

	repo.accounts.On("EmailTakenTx", mock.Anything, "jane@example.com", uuid.Nil).
		Return(false, nil).Once()
	repo.accounts.On("RegisterTx", mock.Anything, mock.MatchedBy(func(record *users.Account) bool {
		return record.Email == "jane@example.com" && record.PasswordHash != ""
	})).Return(created, nil).Once()

	err := handler.Execute(context.Background(), users.RegisterAccountMessage{
		Email:    "jane@example.com",
		Password: "very secure password",
	})
	require.NoError(t, err)
	repo.accounts.AssertExpectations(t)
}

func TestRegisterAccountHandlerPropagatesDomainError(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewRegisterAccountHandler(svc)

	repo.accounts.On("EmailTakenTx", mock.Anything, "jane@example.com", uuid.Nil).
		Return(true, nil).Once()

	err := handler.Execute(context.Background(), users.RegisterAccountMessage{
		Email:    "jane@example.com",
		Password: "very secure password",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestRegisterAccountHandlerHonorsCancelledContext(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewRegisterAccountHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, users.RegisterAccountMessage{
		Email:    "jane@example.com",
		Password: "very secure password",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
	repo.accounts.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything)
}
