package shell_test

import (
	"context"
	"net/http"
	"testing"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/internal/routertest"
	"github.com/goliatone/go-auth-gate/internal/shell"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	session *gate.Session
	signIn  error
	adopted string
}

func (p *stubProvider) GetSession(context.Context) (*gate.Session, error) {
	return p.session, nil
}

func (p *stubProvider) SignInWithPassword(_ context.Context, email, _ string) (*gate.AuthUser, error) {
	if p.signIn != nil {
		return nil, p.signIn
	}
	p.session = &gate.Session{UserID: staffID.String(), Email: email}
	return &gate.AuthUser{ID: staffID.String(), Email: email}, nil
}

func (p *stubProvider) SignInWithOAuth(_ context.Context, provider gate.OAuthProvider, redirectTo string) (*gate.OAuthRedirect, error) {
	return &gate.OAuthRedirect{Provider: provider, URL: "https://idp.test/authorize?provider=" + string(provider)}, nil
}

func (p *stubProvider) SignUp(_ context.Context, email, _ string, _ gate.UserMetadata, _ string) (*gate.AuthUser, error) {
	return &gate.AuthUser{ID: uuid.NewString(), Email: email}, nil
}

func (p *stubProvider) ResetPasswordForEmail(context.Context, string) error { return nil }

func (p *stubProvider) UpdateUserMetadata(context.Context, gate.UserMetadata) error { return nil }

func (p *stubProvider) SignOut(context.Context) error {
	p.session = nil
	return nil
}

func (p *stubProvider) OnSessionChange(gate.SessionChangeHandler) func() { return func() {} }

func (p *stubProvider) SetSession(_ context.Context, access, _ string) (*gate.Session, error) {
	p.adopted = access
	p.session = &gate.Session{UserID: staffID.String()}
	return p.session, nil
}

type stubRecords map[string]*gate.User

func (r stubRecords) FindUserByID(_ context.Context, id string) (*gate.User, error) {
	if u, ok := r[id]; ok {
		return u, nil
	}
	return nil, gate.ErrNoSession
}

var staffID = uuid.MustParse("6a1b8c5e-2f44-4b71-9d2a-3c9e1f0a7b21")

type fixture struct {
	provider   *stubProvider
	machine    *gate.Machine
	history    *gate.History
	controller *shell.Controller
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	provider := &stubProvider{}
	records := stubRecords{
		staffID.String(): {ID: staffID, Role: string(gate.RoleStaff), PhoneNumber: "+15555550100"},
	}

	history := gate.NewHistory(gate.PathLogin)
	notices := gate.NewNoticeBoard(0)
	store := gate.NewStore(gate.WithStoreEffectRunner(gate.NewEffectRunner(history, notices)))
	machine := gate.NewMachine(provider, records, store, history)
	require.NoError(t, machine.Initialize(context.Background()))

	controller := shell.NewController(machine, history, notices, shell.WithSessionAdopter(provider))

	return fixture{provider: provider, machine: machine, history: history, controller: controller}
}

func newMockContext() *routertest.MockContext {
	ctx := routertest.NewMockContext()
	ctx.On("Method").Return("POST").Maybe()
	return ctx
}

func captureView(ctx *routertest.MockContext, status int) *shell.View {
	view := &shell.View{}
	ctx.On("JSON", status, mock.Anything).Run(func(args mock.Arguments) {
		*view = args.Get(1).(shell.View)
	}).Return(nil).Once()
	return view
}

func TestLoginPostLandsOnRoleDashboard(t *testing.T) {
	f := newFixture(t)

	ctx := newMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*gate.LoginRequest)
		payload.Email = "staff@example.com"
		payload.Password = "s3cret-pass"
	}).Return(nil)
	view := captureView(ctx, http.StatusOK)

	require.NoError(t, f.controller.LoginPost(ctx))

	assert.True(t, view.State.IsAuthenticated)
	assert.Equal(t, gate.RoleStaff, view.State.Role)
	assert.Equal(t, gate.PathStaff, view.Location)
	require.NotEmpty(t, view.Notices)
	assert.Equal(t, gate.MsgLoginSucceeded, view.Notices[0].Message)
}

func TestLoginPostRejected(t *testing.T) {
	f := newFixture(t)
	f.provider.signIn = gate.ErrInvalidCredentials

	ctx := newMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*gate.LoginRequest)
		payload.Email = "staff@example.com"
		payload.Password = "wrong"
	}).Return(nil)
	view := captureView(ctx, http.StatusUnauthorized)

	require.NoError(t, f.controller.LoginPost(ctx))

	assert.False(t, view.State.IsAuthenticated)
	assert.Equal(t, gate.PathLogin, view.Location)
	assert.NotEmpty(t, view.Errors["form"])
}

func TestRegisterPostValidatesForm(t *testing.T) {
	f := newFixture(t)

	ctx := newMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*gate.RegisterRequest)
		payload.Email = "new@example.com"
		payload.Password = "longenough"
		payload.ConfirmPassword = "different"
	}).Return(nil)
	view := captureView(ctx, http.StatusUnprocessableEntity)

	require.NoError(t, f.controller.RegisterPost(ctx))

	assert.Contains(t, view.Errors, "confirm_password")
	assert.Contains(t, view.Errors, "first_name")
}

func TestOAuthBeginRedirectsToProvider(t *testing.T) {
	f := newFixture(t)

	ctx := newMockContext()
	ctx.On("Param", "provider", "").Return("github")
	ctx.ExpectRedirect("https://idp.test/authorize?provider=github")

	require.NoError(t, f.controller.OAuthBegin(ctx))
	ctx.AssertCalled(t, "SetHeader", "Location", "https://idp.test/authorize?provider=github")
	ctx.AssertCalled(t, "NoContent", http.StatusTemporaryRedirect)

	assert.True(t, f.machine.State().Loading)
}

func TestOAuthCallbackAdoptsTokens(t *testing.T) {
	f := newFixture(t)

	ctx := newMockContext()
	ctx.On("Query", "error", "").Return("")
	ctx.On("Query", "access_token", "").Return("access-123")
	ctx.On("Query", "refresh_token", "").Return("refresh-123")
	view := captureView(ctx, http.StatusOK)

	require.NoError(t, f.controller.OAuthCallback(ctx))

	assert.Equal(t, "access-123", f.provider.adopted)
	assert.True(t, view.State.IsAuthenticated)
	assert.Equal(t, gate.RoleStaff, view.State.Role)
	assert.Equal(t, gate.PathObserver, view.Location)
}

func TestRootRedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	ctx := newMockContext()
	ctx.ExpectRedirect(gate.PathLogin)

	require.NoError(t, f.controller.Root(ctx))
	ctx.AssertCalled(t, "NoContent", http.StatusFound)
}

func TestLogOutReturnsToLogin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.Login(context.Background(), "staff@example.com", "s3cret-pass"))

	ctx := newMockContext()
	view := captureView(ctx, http.StatusOK)

	require.NoError(t, f.controller.LogOut(ctx))

	assert.False(t, view.State.IsAuthenticated)
	assert.Equal(t, gate.PathLogin, view.Location)
}

type MockResetPassword struct {
	mock.Mock
}

func (m *MockResetPassword) Execute(ctx context.Context, msg gate.ResetPasswordMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func TestForgotPasswordPostDispatchesCommand(t *testing.T) {
	handler := &MockResetPassword{}
	handler.On("Execute", mock.Anything, gate.ResetPasswordMessage{Email: "staff@example.com"}).Return(nil).Once()

	f := newFixture(t)
	f.controller = shell.WithResetPasswordHandler(handler)(f.controller)

	ctx := newMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*gate.ForgotPasswordRequest).Email = "staff@example.com"
	}).Return(nil)
	captureView(ctx, http.StatusOK)

	require.NoError(t, f.controller.ForgotPasswordPost(ctx))
	handler.AssertExpectations(t)
}

func TestForgotPasswordPostCommandFailure(t *testing.T) {
	handler := &MockResetPassword{}
	handler.On("Execute", mock.Anything, mock.Anything).Return(gate.ErrTransport).Once()

	f := newFixture(t)
	f.controller = shell.WithResetPasswordHandler(handler)(f.controller)

	ctx := newMockContext()
	ctx.On("Bind", mock.Anything).Return(nil)
	view := captureView(ctx, http.StatusServiceUnavailable)

	require.NoError(t, f.controller.ForgotPasswordPost(ctx))
	assert.NotEmpty(t, view.Errors["form"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, shell.StatusFor(gate.ErrInvalidCredentials))
	assert.Equal(t, http.StatusConflict, shell.StatusFor(gate.ErrUserExists))
	assert.Equal(t, http.StatusServiceUnavailable, shell.StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusUnprocessableEntity, shell.StatusFor(gate.ErrInvalidPhoneNumber))
	assert.Equal(t, http.StatusInternalServerError, shell.StatusFor(gate.ErrNoUserReturned))
}
