package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "staff@example.com"
	testPassword = "s3cret-pass"
)

func (h *harness) login(t *testing.T, id string, role gate.Role) {
	t.Helper()
	h.provider.On("SignInWithPassword", mock.Anything, testEmail, testPassword).
		Return(&gate.AuthUser{ID: id, Email: testEmail}, nil).Once()
	h.withUser(id, role, "+15555550100")
	require.NoError(t, h.machine.Login(context.Background(), testEmail, testPassword))
}

func TestLoginLandsOnRoleDashboard(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()

	h.login(t, "user-1", gate.RoleStaff)

	state := h.machine.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, gate.RoleStaff, state.Role)
	assert.False(t, state.Loading)
	assert.Equal(t, gate.PathStaff, h.history.Location())
	assert.Equal(t, []string{gate.MsgLoginSucceeded}, h.messages())
	assert.Equal(t, []gate.ActivityEventType{gate.ActivityEventLoginSuccess}, h.sink.Types())
}

func TestStaffOnAdminOnlyRouteGoesToStaffDashboard(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.login(t, "user-1", gate.RoleStaff)

	decision := h.machine.Guard().Check(h.machine.State(), gate.NewRoleSet(gate.RoleAdmin))

	assert.Equal(t, gate.Decision{Outcome: gate.OutcomeRedirect, Path: gate.PathStaff}, decision)
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithPassword", mock.Anything, testEmail, "wrong-pass").
		Return(nil, gate.ErrInvalidCredentials)

	err := h.machine.Login(context.Background(), testEmail, "wrong-pass")
	require.Error(t, err)

	state := h.machine.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Equal(t, gate.PathLogin, h.history.Location())
	assert.Equal(t, []string{gate.ErrInvalidCredentials.Message}, h.messages())
	assert.Equal(t, []gate.ActivityEventType{gate.ActivityEventLoginFailure}, h.sink.Types())
}

func TestLoginTransportFailureUsesGenericMessage(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithPassword", mock.Anything, testEmail, testPassword).
		Return(nil, context.DeadlineExceeded)

	err := h.machine.Login(context.Background(), testEmail, testPassword)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, []string{gate.MsgLoginFailed + ": " + gate.ErrTransport.Message}, h.messages())
}

func TestLoginWithoutUserIsRejected(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, nil)

	err := h.machine.Login(context.Background(), testEmail, testPassword)
	require.Error(t, err)
	assert.Equal(t, gate.KindCredential, gate.ClassifyError(err))
	assert.False(t, h.machine.State().IsAuthenticated)
}

func TestLoginValidatesBeforeCallingProvider(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()

	err := h.machine.Login(context.Background(), "not-an-email", "")
	require.Error(t, err)
	assert.Equal(t, gate.KindValidation, gate.ClassifyError(err))

	h.provider.AssertNotCalled(t, "SignInWithPassword", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, h.messages(), 1)
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.login(t, "user-1", gate.RoleAdmin)
	h.messages()

	h.provider.On("SignOut", mock.Anything).Return(nil).Twice()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.machine.Logout(context.Background()))

		state := h.machine.State()
		assert.False(t, state.IsAuthenticated)
		assert.Equal(t, gate.RoleNone, state.Role)
		assert.False(t, state.Loading)
		assert.Equal(t, gate.PathLogin, h.history.Location())
		assert.Equal(t, []string{gate.MsgLoggedOut}, h.messages())
	}

	h.provider.AssertNumberOfCalls(t, "SignOut", 2)
}

func TestLogoutFailureKeepsState(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.login(t, "user-1", gate.RoleAdmin)
	h.messages()

	h.provider.On("SignOut", mock.Anything).Return(errors.New("network down"))

	require.Error(t, h.machine.Logout(context.Background()))

	state := h.machine.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, gate.RoleAdmin, state.Role)
	assert.Equal(t, gate.PathAdmin, h.history.Location())
	assert.Equal(t, []string{gate.MsgLogoutFailed}, h.messages())
}

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(gate.PathRegister)
	h.boot()

	metadata := gate.UserMetadata{FirstName: "Ada", LastName: "Lovelace", PhoneNumber: "+15555550100"}
	h.provider.On("SignUp", mock.Anything, testEmail, testPassword, metadata, "https://app.example.com/login").
		Return(&gate.AuthUser{ID: "user-1", Email: testEmail}, nil)

	require.NoError(t, h.machine.Register(context.Background(), testEmail, testPassword, metadata))

	assert.False(t, h.machine.State().IsAuthenticated, "not signed in until confirmed")
	assert.Equal(t, gate.PathLogin, h.history.Location())
	assert.Equal(t, []string{gate.MsgRegistered}, h.messages())

	h.login(t, "user-1", gate.RoleObserver)
	assert.Equal(t, gate.PathObserver, h.history.Location())

	assert.Equal(t, []gate.ActivityEventType{
		gate.ActivityEventRegistered,
		gate.ActivityEventLoginSuccess,
	}, h.sink.Types())
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h := newHarness(gate.PathRegister)
	h.boot()

	err := h.machine.Register(context.Background(), testEmail, "short", gate.UserMetadata{})
	require.Error(t, err)

	h.provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, gate.PathRegister, h.history.Location())
}

func TestRegisterWithoutUserInResponse(t *testing.T) {
	h := newHarness(gate.PathRegister)
	h.boot()
	h.provider.On("SignUp", mock.Anything, testEmail, testPassword, gate.UserMetadata{}, mock.Anything).
		Return(nil, nil)

	err := h.machine.Register(context.Background(), testEmail, testPassword, gate.UserMetadata{})
	assert.Equal(t, gate.ErrNoUserReturned, err)

	assert.Equal(t, gate.PathRegister, h.history.Location())
	assert.Equal(t, []string{gate.MsgRegisterNoUser}, h.messages())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(gate.PathRegister)
	h.boot()
	h.provider.On("SignUp", mock.Anything, testEmail, testPassword, gate.UserMetadata{}, mock.Anything).
		Return(nil, gate.ErrUserExists)

	require.Error(t, h.machine.Register(context.Background(), testEmail, testPassword, gate.UserMetadata{}))
	assert.Equal(t, []string{gate.ErrUserExists.Message}, h.messages())
}

func TestForgotPassword(t *testing.T) {
	h := newHarness(gate.PathForgotPassword)
	h.boot()
	h.provider.On("ResetPasswordForEmail", mock.Anything, testEmail).Return(nil)

	require.NoError(t, h.machine.ForgotPassword(context.Background(), " "+testEmail+" "))

	assert.Equal(t, gate.PathLogin, h.history.Location())
	assert.Equal(t, []string{gate.MsgPasswordResetSent}, h.messages())
	assert.Equal(t, []gate.ActivityEventType{gate.ActivityEventPasswordResetRequest}, h.sink.Types())
}

func TestForgotPasswordFailure(t *testing.T) {
	h := newHarness(gate.PathForgotPassword)
	h.boot()
	h.provider.On("ResetPasswordForEmail", mock.Anything, testEmail).Return(errors.New("smtp down"))

	require.Error(t, h.machine.ForgotPassword(context.Background(), testEmail))

	assert.Equal(t, gate.PathForgotPassword, h.history.Location())
	assert.Equal(t, []string{gate.MsgPasswordResetFailed}, h.messages())
}

func TestLoginWithOAuthKeepsLoadingUntilCallback(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithOAuth", mock.Anything, gate.OAuthGitHub, "https://app.example.com/auth/callback").
		Return(&gate.OAuthRedirect{Provider: gate.OAuthGitHub, URL: "https://idp.example.com/authorize?provider=github"}, nil)

	require.NoError(t, h.machine.LoginWithOAuth(context.Background(), gate.OAuthGitHub))

	assert.True(t, h.machine.State().Loading)
	assert.Equal(t, "https://idp.example.com/authorize?provider=github", h.history.PendingRedirect())
	assert.Equal(t, []gate.ActivityEventType{gate.ActivityEventOAuthStarted}, h.sink.Types())

	h.provider.On("GetSession", mock.Anything).Return(&gate.Session{UserID: "user-1"}, nil)
	h.withUser("user-1", gate.RoleClient, "+15555550100")

	require.NoError(t, h.machine.HandleOAuthCallback(context.Background()))
	assert.False(t, h.machine.State().Loading)
}

func TestLoginWithOAuthRejectsUnknownProvider(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()

	err := h.machine.LoginWithOAuth(context.Background(), gate.OAuthProvider("myspace"))
	assert.Equal(t, gate.ErrInvalidOAuthProvider, err)

	assert.False(t, h.machine.State().Loading)
	assert.Equal(t, []string{gate.ErrInvalidOAuthProvider.Message}, h.messages())
	h.provider.AssertNotCalled(t, "SignInWithOAuth", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginWithOAuthProviderFailureReleasesLoading(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithOAuth", mock.Anything, gate.OAuthGoogle, mock.Anything).
		Return(nil, errors.New("boom"))

	require.Error(t, h.machine.LoginWithOAuth(context.Background(), gate.OAuthGoogle))

	assert.False(t, h.machine.State().Loading)
	assert.Equal(t, []string{gate.MsgOAuthFailed}, h.messages())
}

func TestCloseReleasesPendingOAuthHold(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithOAuth", mock.Anything, gate.OAuthTwitter, mock.Anything).
		Return(&gate.OAuthRedirect{Provider: gate.OAuthTwitter, URL: "https://idp/authorize"}, nil)

	require.NoError(t, h.machine.LoginWithOAuth(context.Background(), gate.OAuthTwitter))
	require.True(t, h.machine.State().Loading)

	require.NoError(t, h.machine.Close())
	assert.False(t, h.machine.State().Loading)
}

func TestAbandonedOAuthDoesNotKeepFailedLoginLoading(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.boot()
	h.provider.On("SignInWithOAuth", mock.Anything, gate.OAuthGoogle, mock.Anything).
		Return(&gate.OAuthRedirect{Provider: gate.OAuthGoogle, URL: "https://idp/authorize"}, nil)
	h.provider.On("SignInWithPassword", mock.Anything, testEmail, "wrong-pass").
		Return(nil, gate.ErrInvalidCredentials)

	require.NoError(t, h.machine.LoginWithOAuth(context.Background(), gate.OAuthGoogle))
	require.True(t, h.machine.State().Loading)

	require.Error(t, h.machine.Login(context.Background(), testEmail, "wrong-pass"))

	state := h.machine.State()
	assert.False(t, state.Loading)
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, gate.PhaseReady, state.Phase)

	decision := h.machine.Guard().Check(state, gate.NewRoleSet(gate.RoleObserver, gate.RoleClient, gate.RoleStaff, gate.RoleAdmin))
	assert.Equal(t, gate.Decision{Outcome: gate.OutcomeRedirect, Path: gate.PathLogin}, decision)
}

func TestAbandonedOAuthHoldExpires(t *testing.T) {
	h := newHarness(gate.PathLogin)
	h.machine.WithOAuthTimeout(20 * time.Millisecond)
	h.boot()
	h.provider.On("SignInWithOAuth", mock.Anything, gate.OAuthFacebook, mock.Anything).
		Return(&gate.OAuthRedirect{Provider: gate.OAuthFacebook, URL: "https://idp/authorize"}, nil)

	require.NoError(t, h.machine.LoginWithOAuth(context.Background(), gate.OAuthFacebook))
	require.True(t, h.machine.State().Loading)

	assert.Eventually(t, func() bool {
		return !h.machine.State().Loading
	}, time.Second, 5*time.Millisecond)
}
