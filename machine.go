package gate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultOperationTimeout bounds every identity provider and record store call
const DefaultOperationTimeout = 10 * time.Second

// DefaultOAuthTimeout bounds how long an OAuth hand off keeps the state
// loading when the user never comes back
const DefaultOAuthTimeout = 5 * time.Minute

// Machine drives the Store from identity provider facts and user actions.
// All writes go through the store; navigation and notifications are
// produced as effects by the reducer.
type Machine struct {
	provider    IdentityProvider
	records     UserRecords
	store       *Store
	navigator   Navigator
	resolver    *RoleResolver
	checker     *ProfileChecker
	profiles    ProfileWriter
	provisioner UserProvisioner
	routes      RouteTable
	logger      Logger
	activity    ActivitySink
	timeout     time.Duration
	oauthWait   time.Duration
	origin      string
	phoneRegion string

	mu          sync.Mutex
	unsubscribe func()
	oauthHold   *parkedHold
	closed      atomic.Bool
}

// NewMachine wires a machine. The store should be fresh: its boot hold is
// released by Initialize.
func NewMachine(provider IdentityProvider, records UserRecords, store *Store, navigator Navigator) *Machine {
	if store == nil {
		store = NewStore()
	}
	if navigator == nil {
		navigator = NewHistory(PathRoot)
	}

	m := &Machine{
		provider:    provider,
		records:     records,
		store:       store,
		navigator:   navigator,
		routes:      DefaultRouteTable(),
		logger:      defLogger{},
		activity:    noopActivitySink{},
		timeout:     DefaultOperationTimeout,
		oauthWait:   DefaultOAuthTimeout,
		phoneRegion: DefaultPhoneRegion,
	}
	m.resolver = NewRoleResolver(records, m.logger)
	m.checker = NewProfileChecker(records, m.logger)

	return m
}

// WithLogger sets the logger for the machine and its helpers
func (m *Machine) WithLogger(logger Logger) *Machine {
	m.logger = normalizeLogger(logger)
	m.resolver = NewRoleResolver(m.records, m.logger)
	m.checker = NewProfileChecker(m.records, m.logger)
	return m
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (m *Machine) WithActivitySink(sink ActivitySink) *Machine {
	m.activity = normalizeActivitySink(sink)
	return m
}

// WithOperationTimeout bounds each network call. Zero or negative keeps
// the default.
func (m *Machine) WithOperationTimeout(timeout time.Duration) *Machine {
	if timeout > 0 {
		m.timeout = timeout
	}
	return m
}

// WithOAuthTimeout bounds how long an unfinished OAuth sign in keeps the
// state loading. Zero or negative keeps the default.
func (m *Machine) WithOAuthTimeout(timeout time.Duration) *Machine {
	if timeout > 0 {
		m.oauthWait = timeout
	}
	return m
}

// WithOrigin sets the public origin used to build redirect targets
func (m *Machine) WithOrigin(origin string) *Machine {
	m.origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	return m
}

// WithProfileWriter mirrors completed profiles into the record store
func (m *Machine) WithProfileWriter(writer ProfileWriter) *Machine {
	m.profiles = writer
	return m
}

// WithProvisioner creates the backing record of users signing in for the
// first time, before their role is resolved
func (m *Machine) WithProvisioner(provisioner UserProvisioner) *Machine {
	m.provisioner = provisioner
	return m
}

// WithPhoneRegion sets the region used to parse local phone numbers
func (m *Machine) WithPhoneRegion(region string) *Machine {
	if region = strings.TrimSpace(region); region != "" {
		m.phoneRegion = strings.ToUpper(region)
	}
	return m
}

// WithRouteTable sets the role dashboards. The store reducer should be
// built with the same table.
func (m *Machine) WithRouteTable(routes RouteTable) *Machine {
	m.routes = routes
	return m
}

// Store returns the state container
func (m *Machine) Store() *Store {
	return m.store
}

// State returns the current state snapshot
func (m *Machine) State() AuthState {
	return m.store.GetState()
}

// Guard returns a guard sharing the machine route table
func (m *Machine) Guard() Guard {
	return NewGuard(m.routes)
}

// Start subscribes to identity provider session notifications
func (m *Machine) Start() {
	if m.closed.Load() {
		return
	}

	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	unsubscribe := m.provider.OnSessionChange(m.onSessionChange)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil || m.closed.Load() {
		if unsubscribe != nil {
			unsubscribe()
		}
		return
	}
	m.unsubscribe = unsubscribe
}

// Close releases the provider subscription. Notifications arriving
// afterwards are ignored.
func (m *Machine) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	m.releaseOAuthHold()
	return nil
}

// Initialize reads the current session and derives the state from it.
// Failures are logged and leave the user unauthenticated. The boot hold
// is released on every path.
func (m *Machine) Initialize(ctx context.Context) error {
	defer m.store.Booted()
	defer m.releaseOAuthHold()

	ticket := m.store.Begin()

	session, err := m.getSession(ctx)
	if err != nil {
		m.logger.Error("auth initialization error", "error", err)
		m.store.Commit(ticket, SessionChecked{Session: nil})
		return err
	}

	if !m.store.Commit(ticket, SessionChecked{Session: session}) || session == nil {
		return nil
	}

	userID := session.GetUserID()
	m.store.Commit(ticket, RoleRequested{UserID: userID})

	m.provision(ctx, userID, session.Email, session.Metadata)
	role := m.resolveRole(ctx, userID)
	if !m.store.Commit(ticket, RoleResolved{Role: role}) {
		return nil
	}

	switch m.navigator.Location() {
	case PathAuthCallback, PathCompleteProfile:
		return nil
	}

	if !m.isProfileComplete(ctx, userID) && m.store.Current(ticket) {
		m.store.Dispatch(ProfileIncomplete{UserID: userID})
	}

	return nil
}

func (m *Machine) onSessionChange(event SessionEventType, session *Session) {
	if m.closed.Load() {
		return
	}

	switch event {
	case SessionSignedIn:
		if session.GetUserID() == "" {
			m.logger.Warn("signed in notification without session")
			return
		}
		m.signedIn(session)
	case SessionSignedOut:
		m.store.Commit(m.store.Begin(), SignedOut{})
	default:
		m.logger.Debug("session notification ignored", "event", event)
	}
}

func (m *Machine) signedIn(session *Session) {
	release := m.store.Hold()
	defer release()
	defer m.releaseOAuthHold()

	ticket := m.store.Begin()
	if !m.store.Commit(ticket, SignedIn{Session: session}) {
		return
	}

	ctx := context.Background()
	m.provision(ctx, session.UserID, session.Email, session.Metadata)
	role := m.resolveRole(ctx, session.UserID)
	m.store.Commit(ticket, RoleResolved{Role: role})
}

func (m *Machine) getSession(ctx context.Context) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.provider.GetSession(ctx)
}

func (m *Machine) provision(ctx context.Context, userID, email string, metadata UserMetadata) {
	if m.provisioner == nil || userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := m.provisioner.ProvisionUser(ctx, userID, email, metadata); err != nil {
		m.logger.Error("user record provisioning error", "user_id", userID, "error", err)
	}
}

func (m *Machine) resolveRole(ctx context.Context, userID string) Role {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.resolver.ResolveRole(ctx, userID)
}

func (m *Machine) isProfileComplete(ctx context.Context, userID string) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.checker.IsProfileComplete(ctx, userID)
}

type parkedHold struct {
	release func()
	timer   *time.Timer
}

// parkOAuthHold keeps loading on while the user is away at the OAuth
// provider. The callback or any later action drops it; otherwise it
// expires after oauthWait.
func (m *Machine) parkOAuthHold(release func()) {
	parked := &parkedHold{release: release}

	m.mu.Lock()
	previous := m.oauthHold
	m.oauthHold = parked
	parked.timer = time.AfterFunc(m.oauthWait, func() {
		if m.takeOAuthHold(parked) {
			m.logger.Warn("oauth sign in abandoned", "after", m.oauthWait.String())
			release()
		}
	})
	m.mu.Unlock()

	if previous != nil {
		previous.timer.Stop()
		previous.release()
	}
}

func (m *Machine) takeOAuthHold(parked *parkedHold) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.oauthHold != parked {
		return false
	}
	m.oauthHold = nil
	return true
}

func (m *Machine) releaseOAuthHold() {
	m.mu.Lock()
	parked := m.oauthHold
	m.oauthHold = nil
	m.mu.Unlock()

	if parked != nil {
		parked.timer.Stop()
		parked.release()
	}
}

func (m *Machine) redirectTarget(path string) string {
	return m.origin + path
}

func (m *Machine) fail(action, fallback string, err error) {
	m.store.Dispatch(ActionFailed{
		Action:  action,
		Message: UserMessage(err, fallback),
	})
}

func (m *Machine) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID, email string, metadata map[string]any) {
	sink := normalizeActivitySink(m.activity)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		Role:       m.store.GetState().Role,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error", "event", eventType, "error", err)
	}
}
