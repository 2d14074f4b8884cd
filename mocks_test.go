package gate_test

import (
	"context"
	"sync"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider mocks gate.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock

	mu       sync.Mutex
	handlers []gate.SessionChangeHandler
}

func (m *MockIdentityProvider) GetSession(ctx context.Context) (*gate.Session, error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(*gate.Session)
	return session, args.Error(1)
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*gate.AuthUser, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*gate.AuthUser)
	return user, args.Error(1)
}

func (m *MockIdentityProvider) SignInWithOAuth(ctx context.Context, provider gate.OAuthProvider, redirectTo string) (*gate.OAuthRedirect, error) {
	args := m.Called(ctx, provider, redirectTo)
	redirect, _ := args.Get(0).(*gate.OAuthRedirect)
	return redirect, args.Error(1)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string, metadata gate.UserMetadata, emailRedirectTo string) (*gate.AuthUser, error) {
	args := m.Called(ctx, email, password, metadata, emailRedirectTo)
	user, _ := args.Get(0).(*gate.AuthUser)
	return user, args.Error(1)
}

func (m *MockIdentityProvider) ResetPasswordForEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockIdentityProvider) UpdateUserMetadata(ctx context.Context, metadata gate.UserMetadata) error {
	args := m.Called(ctx, metadata)
	return args.Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// OnSessionChange records the handler so tests can fire notifications
func (m *MockIdentityProvider) OnSessionChange(handler gate.SessionChangeHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.handlers)
	m.handlers = append(m.handlers, handler)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.handlers[idx] = nil
	}
}

// Fire delivers a notification to every live handler
func (m *MockIdentityProvider) Fire(event gate.SessionEventType, session *gate.Session) {
	m.mu.Lock()
	handlers := append([]gate.SessionChangeHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(event, session)
		}
	}
}

// MockUserRecords mocks gate.UserRecords
type MockUserRecords struct {
	mock.Mock
}

func (m *MockUserRecords) FindUserByID(ctx context.Context, id string) (*gate.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*gate.User)
	return user, args.Error(1)
}

// MockProfileWriter mocks gate.ProfileWriter
type MockProfileWriter struct {
	mock.Mock
}

func (m *MockProfileWriter) UpdateProfile(ctx context.Context, id string, metadata gate.UserMetadata) (*gate.User, error) {
	args := m.Called(ctx, id, metadata)
	user, _ := args.Get(0).(*gate.User)
	return user, args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []gate.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event gate.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []gate.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gate.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func notFound() error {
	return gate.ErrUserNotFound
}

type harness struct {
	provider *MockIdentityProvider
	records  *MockUserRecords
	history  *gate.History
	notices  *gate.NoticeBoard
	store    *gate.Store
	machine  *gate.Machine
	sink     *recordingSink
}

func newHarness(start string) *harness {
	h := &harness{
		provider: &MockIdentityProvider{},
		records:  &MockUserRecords{},
		history:  gate.NewHistory(start),
		notices:  gate.NewNoticeBoard(0),
		sink:     &recordingSink{},
	}

	h.store = gate.NewStore(gate.WithStoreEffectRunner(gate.NewEffectRunner(h.history, h.notices)))
	h.machine = gate.NewMachine(h.provider, h.records, h.store, h.history).
		WithLogger(quietLogger{}).
		WithOrigin("https://app.example.com/").
		WithActivitySink(h.sink)

	return h
}

// boot runs Initialize with no session
func (h *harness) boot() {
	h.provider.On("GetSession", mock.Anything).Return(nil, nil).Once()
	_ = h.machine.Initialize(context.Background())
}

func (h *harness) withUser(id string, role gate.Role, phone string) {
	h.records.On("FindUserByID", mock.Anything, id).Return(&gate.User{
		Role:        string(role),
		Email:       id + "@example.com",
		PhoneNumber: phone,
	}, nil)
}

func (h *harness) messages() []string {
	notices := h.notices.Drain()
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Message)
	}
	return out
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}
