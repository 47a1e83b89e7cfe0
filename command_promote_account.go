package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// PromoteAccountMessage upgrades an account to the professional tier on
// behalf of an admin caller.
type PromoteAccountMessage struct {
	AccountID  string `json:"account_id"`
	CallerID   string `json:"caller_id"`
	CallerRole Role   `json:"caller_role"`
}

func (e PromoteAccountMessage) Type() string { return "account.promote" }

// PromoteAccountHandler executes promotions through the account service.
type PromoteAccountHandler struct {
	service *AccountService
}

// NewPromoteAccountHandler returns a handler bound to the service.
func NewPromoteAccountHandler(service *AccountService) *PromoteAccountHandler {
	return &PromoteAccountHandler{service: service}
}

func (h *PromoteAccountHandler) Execute(ctx context.Context, event PromoteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account promotion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PromoteAccountHandler) execute(ctx context.Context, event PromoteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	caller := Caller{ID: event.CallerID, Role: event.CallerRole}

	_, err := h.service.Promote(ctx, caller, event.AccountID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account promotion failed")
	}

	return nil
}
