package gotrue

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-errors"
)

// TextCodeTokenInvalid is attached to access tokens that fail to decode
const TextCodeTokenInvalid = "GOTRUE_TOKEN_INVALID"

// ErrTokenInvalid is returned when an access token can not be decoded or
// fails verification.
var ErrTokenInvalid = errors.New("invalid access token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// AccessClaims are the claims GoTrue puts in its access tokens
type AccessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *userResponse) toAuthUser() *gate.AuthUser {
	return &gate.AuthUser{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: gate.MetadataFromMap(u.UserMetadata),
	}
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// signUpResponse is either a bare user, when email confirmation is
// pending, or a token response with the user nested.
type signUpResponse struct {
	userResponse
	User *userResponse `json:"user"`
}

func (r signUpResponse) user() *userResponse {
	if r.User != nil {
		return r.User
	}
	if r.ID == "" {
		return nil
	}
	u := r.userResponse
	return &u
}

// ParseAccessToken decodes the claims of an access token. Signatures are
// checked only when the client was configured with a JWK set.
func (c *Client) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	if c.jwks != nil {
		token, err := jwt.ParseWithClaims(raw, claims, c.jwks.Keyfunc, jwt.WithTimeFunc(c.now))
		if err != nil || !token.Valid {
			return nil, tokenError(err)
		}
		return claims, nil
	}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, tokenError(err)
	}

	return claims, nil
}

func (c *Client) sessionFromToken(resp tokenResponse) (*gate.Session, error) {
	if resp.AccessToken == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := c.ParseAccessToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	session := &gate.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: resp.AccessToken,
		Metadata:    gate.MetadataFromMap(claims.UserMetadata),
	}

	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		session.ExpiresAt = &exp
	} else if resp.ExpiresIn > 0 {
		exp := c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		session.ExpiresAt = &exp
	}

	if resp.User != nil {
		if session.UserID == "" {
			session.UserID = resp.User.ID
		}
		if resp.User.Email != "" {
			session.Email = resp.User.Email
		}
		if len(resp.User.UserMetadata) > 0 {
			session.Metadata = gate.MetadataFromMap(resp.User.UserMetadata)
		}
	}

	if session.UserID == "" {
		return nil, ErrTokenInvalid.Clone().WithMetadata(map[string]any{
			"reason": "missing subject",
		})
	}

	return session, nil
}

func tokenError(err error) error {
	clone := ErrTokenInvalid.Clone()
	if err == nil {
		return clone
	}
	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "gotrue",
		"cause":    err.Error(),
	})
}
