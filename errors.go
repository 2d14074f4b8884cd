package gate

import (
	"context"
	stderrors "errors"
	"net"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeNoSession         = "GATE_NO_SESSION"
	TextCodeInvalidCredential = "GATE_INVALID_CREDENTIALS"
	TextCodeUserExists        = "GATE_USER_EXISTS"
	TextCodeNoUserReturned    = "GATE_NO_USER_RETURNED"
	TextCodeInvalidProvider   = "GATE_INVALID_OAUTH_PROVIDER"
	TextCodeInvalidPhone      = "GATE_INVALID_PHONE"
	TextCodeUserNotFound      = "GATE_USER_NOT_FOUND"
	TextCodeTransport         = "GATE_TRANSPORT"
)

// ErrNoSession is returned when a flow requires a session and there is none
var ErrNoSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is returned by providers rejecting a sign in
var ErrInvalidCredentials = errors.New("invalid login credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrUserExists is returned by providers rejecting a duplicated sign up
var ErrUserExists = errors.New("user already registered", errors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(errors.CodeConflict)

// ErrNoUserReturned is returned when a sign up succeeds without a user
var ErrNoUserReturned = errors.New("registration returned no user", errors.CategoryInternal).
	WithTextCode(TextCodeNoUserReturned).
	WithCode(errors.CodeInternal)

// ErrInvalidOAuthProvider is returned for providers outside the supported list
var ErrInvalidOAuthProvider = errors.New("unsupported oauth provider", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidProvider).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPhoneNumber is returned when a phone number can not be parsed
var ErrInvalidPhoneNumber = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned by the record store for unknown users
var ErrUserNotFound = errors.New("user record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrTransport is the base error for unreachable identity services
var ErrTransport = errors.New("identity service unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeTransport).
	WithCode(errors.CodeInternal)

// IsUserNotFound reports whether err means the record store has no such user
func IsUserNotFound(err error) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == TextCodeUserNotFound
}

// ErrorKind groups errors by how they are surfaced to the user
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindCredential
	KindTransport
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	default:
		return "unexpected"
	}
}

// ClassifyError maps an error to its ErrorKind
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnexpected
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return KindTransport
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		return KindValidation
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.Category {
		case errors.CategoryAuth, errors.CategoryConflict:
			return KindCredential
		case errors.CategoryOperation:
			return KindTransport
		case errors.CategoryValidation, errors.CategoryBadInput:
			return KindValidation
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return KindTransport
	}

	return KindUnexpected
}

// UserMessage returns the text shown to the user for err. Credential and
// validation errors carry their own message; anything else falls back to
// the given generic text.
func UserMessage(err error, fallback string) string {
	if fallback == "" {
		fallback = MsgUnexpected
	}
	if err == nil {
		return fallback
	}

	switch ClassifyError(err) {
	case KindCredential:
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Message != "" {
			return richErr.Message
		}
		return fallback
	case KindValidation:
		var verrs validation.Errors
		if stderrors.As(err, &verrs) {
			return verrs.Error()
		}
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Message != "" {
			return richErr.Message
		}
		return fallback
	case KindTransport:
		return fallback + ": " + ErrTransport.Message
	default:
		return fallback
	}
}

func wrapError(base *errors.Error, operation string, err error) error {
	clone := base.Clone()
	if clone == nil {
		return err
	}
	if err != nil {
		clone.Source = err
	}
	meta := map[string]any{"operation": operation}
	if err != nil {
		meta["error"] = err.Error()
	}
	return clone.WithMetadata(meta)
}
