package routeguard_test

import (
	"net/http"
	"testing"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/internal/routertest"
	"github.com/goliatone/go-auth-gate/middleware/routeguard"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	state gate.AuthState
}

func (s staticSource) GetState() gate.AuthState {
	return s.state
}

func ready(role gate.Role) gate.AuthState {
	return gate.AuthState{
		IsAuthenticated: role != gate.RoleNone,
		Role:            role,
		UserID:          "user-1",
		Phase:           gate.PhaseReady,
	}
}

func newMockContext(method string) *routertest.MockContext {
	ctx := routertest.NewMockContext()
	ctx.On("Method").Return(method).Maybe()
	ctx.On("Path").Return("/staff").Maybe()
	return ctx
}

func nextRecorder(called *bool) router.HandlerFunc {
	return func(ctx router.Context) error {
		*called = true
		return nil
	}
}

func TestRendersAllowedRole(t *testing.T) {
	mw := routeguard.New(staticSource{ready(gate.RoleStaff)}, gate.NewRoleSet(gate.RoleStaff, gate.RoleAdmin))

	called := false
	ctx := newMockContext("GET")

	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.True(t, called)
}

func TestRedirectsWrongRoleToOwnDashboard(t *testing.T) {
	mw := routeguard.New(staticSource{ready(gate.RoleStaff)}, gate.NewRoleSet(gate.RoleAdmin))

	called := false
	ctx := newMockContext("GET")
	ctx.ExpectRedirect(gate.PathStaff)

	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.False(t, called)
	ctx.AssertCalled(t, "SetHeader", "Location", gate.PathStaff)
	ctx.AssertCalled(t, "NoContent", http.StatusFound)
}

func TestRedirectsAnonymousToLogin(t *testing.T) {
	mw := routeguard.New(staticSource{ready(gate.RoleNone)}, gate.NewRoleSet(gate.RoleObserver))

	called := false
	ctx := newMockContext("POST")
	ctx.ExpectRedirect(gate.PathLogin)

	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.False(t, called)
	ctx.AssertCalled(t, "SetHeader", "Location", gate.PathLogin)
	ctx.AssertCalled(t, "NoContent", http.StatusSeeOther)
}

func TestRendersLoadingWhileStateIsNotFinal(t *testing.T) {
	mw := routeguard.New(staticSource{gate.InitialState()}, gate.NewRoleSet(gate.RoleAdmin))

	var payload routeguard.LoadingPayload
	called := false
	ctx := newMockContext("GET")
	ctx.On("JSON", http.StatusAccepted, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(routeguard.LoadingPayload)
	}).Return(nil).Once()

	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.False(t, called)
	assert.True(t, payload.Loading)
	assert.Equal(t, "/staff", payload.Path)
}

func TestCustomHandlersAndSkip(t *testing.T) {
	var redirected string
	cfg := routeguard.Config{
		Skip: func(ctx router.Context) bool {
			return ctx.Method() == "OPTIONS"
		},
		RedirectHandler: func(ctx router.Context, path string) error {
			redirected = path
			return nil
		},
	}

	route := gate.ProtectedRoute{Path: gate.PathAdmin, Allowed: gate.NewRoleSet(gate.RoleAdmin)}
	mw := routeguard.ForRoute(staticSource{ready(gate.RoleClient)}, route, cfg)

	called := false
	require.NoError(t, mw(nextRecorder(&called))(newMockContext("OPTIONS")))
	assert.True(t, called)

	called = false
	require.NoError(t, mw(nextRecorder(&called))(newMockContext("GET")))
	assert.False(t, called)
	assert.Equal(t, gate.PathClient, redirected)
}

func TestStoreAsStateSource(t *testing.T) {
	store := gate.NewStore()
	mw := routeguard.New(store, gate.NewRoleSet(gate.RoleObserver))

	ctx := newMockContext("GET")
	ctx.On("JSON", http.StatusAccepted, mock.Anything).Return(nil).Once()

	called := false
	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.False(t, called)

	store.Booted()

	ctx = newMockContext("GET")
	ctx.ExpectRedirect(gate.PathLogin)
	require.NoError(t, mw(nextRecorder(&called))(ctx))
	assert.False(t, called)
}
