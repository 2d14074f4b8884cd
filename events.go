package gate

// Event is an input of the transition table
type Event interface {
	EventName() string
}

// SessionChecked reports the result of a session fetch. A nil session
// means nobody is signed in.
type SessionChecked struct {
	Session *Session
}

// RoleRequested marks the start of a role lookup
type RoleRequested struct {
	UserID string
}

// RoleResolved carries the outcome of a role lookup. RoleNone when the
// lookup failed.
type RoleResolved struct {
	Role Role
}

// SignedIn mirrors the provider SIGNED_IN notification
type SignedIn struct {
	Session *Session
}

// SignedOut mirrors the provider SIGNED_OUT notification
type SignedOut struct{}

// LoadingChanged toggles the loading flag
type LoadingChanged struct {
	Loading bool
}

// ProfileIncomplete asks the user to complete the mandatory profile fields
type ProfileIncomplete struct {
	UserID string
}

// NavigationRequested moves the user without touching the state
type NavigationRequested struct {
	Path string
}

// LoginSucceeded is the outcome of a successful credential sign in
type LoginSucceeded struct {
	UserID string
	Role   Role
}

// OAuthStarted hands control to an external OAuth provider
type OAuthStarted struct {
	Redirect OAuthRedirect
}

// Registered reports a sign up pending email confirmation
type Registered struct {
	Email string
}

// PasswordResetRequested reports that a reset email was sent
type PasswordResetRequested struct {
	Email string
}

// LoggedOut is the outcome of a successful sign out
type LoggedOut struct{}

// ActionFailed surfaces a failed action to the user
type ActionFailed struct {
	Action  string
	Message string
}

// CallbackResolved is the outcome of the OAuth callback view
type CallbackResolved struct {
	Session         *Session
	Role            Role
	ProfileComplete bool
}

// ProfileCompleted reports that the mandatory profile fields were saved
type ProfileCompleted struct {
	UserID string
}

func (SessionChecked) EventName() string         { return "session.checked" }
func (RoleRequested) EventName() string          { return "role.requested" }
func (RoleResolved) EventName() string           { return "role.resolved" }
func (SignedIn) EventName() string               { return "session.signed_in" }
func (SignedOut) EventName() string              { return "session.signed_out" }
func (LoadingChanged) EventName() string         { return "loading.changed" }
func (ProfileIncomplete) EventName() string      { return "profile.incomplete" }
func (NavigationRequested) EventName() string    { return "navigation.requested" }
func (LoginSucceeded) EventName() string         { return "login.succeeded" }
func (OAuthStarted) EventName() string           { return "oauth.started" }
func (Registered) EventName() string             { return "register.succeeded" }
func (PasswordResetRequested) EventName() string { return "password_reset.requested" }
func (LoggedOut) EventName() string              { return "logout.succeeded" }
func (ActionFailed) EventName() string           { return "action.failed" }
func (CallbackResolved) EventName() string       { return "oauth.callback_resolved" }
func (ProfileCompleted) EventName() string       { return "profile.completed" }
