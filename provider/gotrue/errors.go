package gotrue

import (
	"encoding/json"
	"net/http"
	"strings"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-errors"
)

// apiError covers the error shapes GoTrue has used over time
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (e apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	return e.Error
}

func responseError(path string, status int, body []byte) error {
	payload := apiError{}
	_ = json.Unmarshal(body, &payload)

	var base *errors.Error
	switch {
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests:
		base = gate.ErrTransport
	case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		base = gate.ErrUserExists
	default:
		base = gate.ErrInvalidCredentials
	}

	clone := base.Clone()
	if msg := payload.text(); msg != "" && base != gate.ErrTransport {
		clone.Message = msg
	}

	return clone.WithMetadata(map[string]any{
		"provider": "gotrue",
		"endpoint": path,
		"status":   status,
		"code":     payload.code(),
	})
}

func transportError(path string, err error) error {
	clone := gate.ErrTransport.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "gotrue",
		"endpoint": path,
		"error":    err.Error(),
	})
}
