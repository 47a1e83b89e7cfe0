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

func TestPromoteAccountHandlerPromotes(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewPromoteAccountHandler(svc)

	account := &users.Account{ID: uuid.New(), Email: "jane@example.com", EmailVerified: true}
	promoted := &users.Account{ID: account.ID, Email: account.Email, EmailVerified: true, IsProfessional: true}

	repo.accounts.On("GetByID", mock.Anything, account.ID.String()).
		Return(account, nil).Once()
	repo.accounts.On("SetProfessional", mock.Anything, account.ID).
		Return(promoted, true, nil).Once()

	err := handler.Execute(context.Background(), users.PromoteAccountMessage{
		AccountID:  account.ID.String(),
		CallerID:   uuid.New().String(),
		CallerRole: users.RoleAdmin,
	})
	require.NoError(t, err)
	repo.accounts.AssertExpectations(t)
}

func TestPromoteAccountHandlerRejectsUnprivilegedCaller(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewPromoteAccountHandler(svc)

	err := handler.Execute(context.Background(), users.PromoteAccountMessage{
		AccountID:  uuid.New().String(),
		CallerID:   uuid.New().String(),
		CallerRole: users.RoleAuthenticated,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrOperationForbidden)
	repo.accounts.AssertNotCalled(t, "SetProfessional", mock.Anything, mock.Anything)
}

func TestPromoteAccountHandlerHonorsCancelledContext(t *testing.T) {
	svc, repo := newTestService()
	handler := users.NewPromoteAccountHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, users.PromoteAccountMessage{
		AccountID:  uuid.New().String(),
		CallerID:   uuid.New().String(),
		CallerRole: users.RoleAdmin,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
	repo.accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
