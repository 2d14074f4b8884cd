package gate

import (
	"context"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type RegisterUserMessage struct {
	command.BaseMessage
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "gate.register" }

// RegisterUserHandler signs up an account through the machine
type RegisterUserHandler struct {
	machine *Machine
}

var _ command.Commander[RegisterUserMessage] = (*RegisterUserHandler)(nil)

func NewRegisterUserHandler(machine *Machine) *RegisterUserHandler {
	return &RegisterUserHandler{machine: machine}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.machine.Register(ctx, event.Email, event.Password, UserMetadata{
			FirstName:   event.FirstName,
			LastName:    event.LastName,
			PhoneNumber: event.PhoneNumber,
		})
	}
}
