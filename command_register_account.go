package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterAccountMessage is the self-registration command payload.
type RegisterAccountMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler executes self-registration through the account
// service.
type RegisterAccountHandler struct {
	service *AccountService
}

// NewRegisterAccountHandler returns a handler bound to the service.
func NewRegisterAccountHandler(service *AccountService) *RegisterAccountHandler {
	return &RegisterAccountHandler{service: service}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	_, err := h.service.Register(ctx, RegisterInput{
		Email:     event.Email,
		Password:  event.Password,
		Nickname:  event.Nickname,
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Phone:     event.Phone,
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration failed")
	}

	return nil
}
