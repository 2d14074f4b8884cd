package gate

import (
	"sync"
)

// Ticket stamps a write with its issue order. Only the latest issued
// ticket may change the state.
type Ticket uint64

// Listener is notified after every applied transition. Listeners run
// synchronously and must not dispatch back into the store.
type Listener func(state AuthState)

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithStoreEffectRunner sets the runner executing transition effects
func WithStoreEffectRunner(runner *EffectRunner) StoreOption {
	return func(s *Store) {
		s.runner = runner
	}
}

// WithStoreRouteTable sets the route table used by the reducer
func WithStoreRouteTable(routes RouteTable) StoreOption {
	return func(s *Store) {
		s.reducer = NewReducer(routes)
	}
}

// WithStoreLogger sets the store logger
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		s.logger = normalizeLogger(logger)
	}
}

// Store owns the single AuthState of the application. Every write goes
// through the reducer; effects are executed in write order.
type Store struct {
	mu        sync.Mutex
	emitMu    sync.Mutex
	state     AuthState
	reducer   Reducer
	seq       uint64
	holds     int
	bootOnce  sync.Once
	listeners map[uint64]Listener
	nextID    uint64
	runner    *EffectRunner
	logger    Logger
}

// NewStore creates a store in the initial loading state. The store holds
// one boot hold until Booted is called.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:     InitialState(),
		reducer:   NewReducer(DefaultRouteTable()),
		holds:     1,
		listeners: map[uint64]Listener{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// GetState returns a snapshot of the current state
func (s *Store) GetState() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener and returns a function that removes it
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Begin issues a new ticket, invalidating every ticket issued before
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return Ticket(s.seq)
}

// Current reports whether the ticket is still the latest issued
func (s *Store) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(t) == s.seq
}

// Commit applies ev if t is still the latest ticket. A stale write leaves
// the state untouched and keeps only its notifications: navigating on
// behalf of a superseded flow would contradict the state.
func (s *Store) Commit(t Ticket, ev Event) bool {
	return s.apply(ev, func() bool { return uint64(t) == s.seq })
}

// Dispatch applies ev without checking tickets. Use it for writes that
// can not conflict, such as loading changes and notifications.
func (s *Store) Dispatch(ev Event) {
	s.apply(ev, nil)
}

// Hold marks the store as loading until the returned release is called.
// Holds nest; loading clears when the last one is released.
func (s *Store) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	first := s.holds == 1
	s.mu.Unlock()

	if first {
		s.syncLoading()
	}

	var once sync.Once
	return func() {
		once.Do(s.release)
	}
}

// Booted releases the boot hold. Calling it more than once is a no-op.
func (s *Store) Booted() {
	s.bootOnce.Do(s.release)
}

func (s *Store) release() {
	s.mu.Lock()
	if s.holds > 0 {
		s.holds--
	}
	last := s.holds == 0
	s.mu.Unlock()

	if last {
		s.syncLoading()
	}
}

// syncLoading derives the flag from the hold count at apply time, not at
// the time the hold changed.
func (s *Store) syncLoading() {
	s.applyWith(func() Event {
		return LoadingChanged{Loading: s.holds > 0}
	}, nil)
}

func (s *Store) apply(ev Event, fresh func() bool) bool {
	return s.applyWith(func() Event { return ev }, fresh)
}

func (s *Store) applyWith(build func() Event, fresh func() bool) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	ev := build()
	next, effects := s.reducer.Reduce(s.state, ev)
	applied := fresh == nil || fresh()
	changed := false
	if applied {
		changed = next != s.state
		s.state = next
	}
	listeners := make([]Listener, 0, len(s.listeners))
	if changed {
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	if !applied {
		s.logger.Debug("stale transition discarded", "event", ev.EventName())
		effects = notificationsOnly(effects)
	}

	if s.runner != nil && len(effects) > 0 {
		s.runner.Run(effects)
	}

	for _, l := range listeners {
		l(next)
	}

	return applied
}

func notificationsOnly(effects []Effect) []Effect {
	kept := effects[:0:0]
	for _, eff := range effects {
		if _, ok := eff.(Notify); ok {
			kept = append(kept, eff)
		}
	}
	return kept
}
