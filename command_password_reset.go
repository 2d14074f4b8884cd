package gate

import (
	"context"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type ResetPasswordMessage struct {
	command.BaseMessage
	Email string `json:"email"`
}

func (p ResetPasswordMessage) Type() string { return "gate.password_reset" }

// ResetPasswordHandler asks the identity service for a reset email
type ResetPasswordHandler struct {
	machine *Machine
}

var _ command.Commander[ResetPasswordMessage] = (*ResetPasswordHandler)(nil)

func NewResetPasswordHandler(machine *Machine) *ResetPasswordHandler {
	return &ResetPasswordHandler{machine: machine}
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.machine.ForgotPassword(ctx, event.Email)
	}
}
