package gate

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging contract used across the gate. It matches the
// leveled key/value shape of glog.Logger so callers can inject one directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionEventType enumerates the identity provider notifications we react to.
type SessionEventType string

const (
	// SessionSignedIn is emitted when the provider establishes a session
	SessionSignedIn SessionEventType = "SIGNED_IN"
	// SessionSignedOut is emitted when the provider drops the session
	SessionSignedOut SessionEventType = "SIGNED_OUT"
)

// Session is the proof of authentication issued by the identity provider.
// The gate only cares about presence and the embedded user identifier.
type Session struct {
	UserID      string
	Email       string
	ExpiresAt   *time.Time
	AccessToken string
	Metadata    UserMetadata
}

// GetUserID returns the identifier of the session owner
func (s *Session) GetUserID() string {
	if s == nil {
		return ""
	}
	return s.UserID
}

// AuthUser is the user descriptor returned by sign-in and sign-up calls.
type AuthUser struct {
	ID       string
	Email    string
	Metadata UserMetadata
}

// OAuthProvider identifies a third party identity provider.
type OAuthProvider string

const (
	OAuthGoogle   OAuthProvider = "google"
	OAuthGitHub   OAuthProvider = "github"
	OAuthFacebook OAuthProvider = "facebook"
	OAuthTwitter  OAuthProvider = "twitter"
)

// IsValid checks the provider against the supported list
func (p OAuthProvider) IsValid() bool {
	switch p {
	case OAuthGoogle, OAuthGitHub, OAuthFacebook, OAuthTwitter:
		return true
	default:
		return false
	}
}

// OAuthRedirect holds the external location the browser has to visit to
// continue an OAuth sign in.
type OAuthRedirect struct {
	Provider OAuthProvider
	URL      string
}

// SessionChangeHandler receives identity provider notifications. The session
// is nil for SessionSignedOut.
type SessionChangeHandler func(event SessionEventType, session *Session)

// IdentityProvider is the client side of the identity service. It is consumed
// as a black box; provider/gotrue ships an HTTP implementation.
type IdentityProvider interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*AuthUser, error)
	SignInWithOAuth(ctx context.Context, provider OAuthProvider, redirectTo string) (*OAuthRedirect, error)
	SignUp(ctx context.Context, email, password string, metadata UserMetadata, emailRedirectTo string) (*AuthUser, error)
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdateUserMetadata(ctx context.Context, metadata UserMetadata) error
	SignOut(ctx context.Context) error
	OnSessionChange(handler SessionChangeHandler) (unsubscribe func())
}

// UserRecords is the backing record store, keyed by user identifier.
type UserRecords interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// ProfileWriter persists profile metadata into the record store.
type ProfileWriter interface {
	UpdateProfile(ctx context.Context, id string, metadata UserMetadata) (*User, error)
}

// UserProvisioner creates the record of a signed in user the first time
// the user is seen. Existing records, and their role, are left as they are.
type UserProvisioner interface {
	ProvisionUser(ctx context.Context, id, email string, metadata UserMetadata) (*User, error)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(format("[DBG] GATE ", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(format("[INF] GATE ", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(format("[WRN] GATE ", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(format("[ERR] GATE ", msg, args...))
}

func format(prefix, msg string, args ...any) string {
	out := prefix + msg
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
