package gate

import (
	"sync"
	"time"
)

// Effect is a side effect emitted alongside a transition. Effects are
// data; an EffectRunner executes them.
type Effect interface {
	effect()
}

// Navigate moves the user to an in-app path
type Navigate struct {
	Path string
}

// Redirect sends the user to an external URL
type Redirect struct {
	URL string
}

// NoticeLevel is the severity of a user visible notification
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notify shows a notification to the user
type Notify struct {
	Level   NoticeLevel
	Message string
}

func (Navigate) effect() {}
func (Redirect) effect() {}
func (Notify) effect()   {}

// Navigator owns the current location of the application
type Navigator interface {
	Navigate(path string)
	Redirect(url string)
	Location() string
}

// Notifier displays notifications to the user
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// EffectRunner executes effects against a navigator and a notifier
type EffectRunner struct {
	navigator Navigator
	notifier  Notifier
	logger    Logger
}

// NewEffectRunner creates a runner. A nil notifier drops notifications.
func NewEffectRunner(navigator Navigator, notifier Notifier) *EffectRunner {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &EffectRunner{
		navigator: navigator,
		notifier:  notifier,
		logger:    defLogger{},
	}
}

// WithLogger sets the logger used to trace effects
func (r *EffectRunner) WithLogger(logger Logger) *EffectRunner {
	r.logger = normalizeLogger(logger)
	return r
}

// Run executes the effects in order
func (r *EffectRunner) Run(effects []Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case Navigate:
			r.logger.Debug("navigate", "path", e.Path)
			if r.navigator != nil {
				r.navigator.Navigate(e.Path)
			}
		case Redirect:
			r.logger.Debug("external redirect", "url", e.URL)
			if r.navigator != nil {
				r.navigator.Redirect(e.URL)
			}
		case Notify:
			r.notifier.Notify(e.Level, e.Message)
		default:
			r.logger.Warn("unknown effect dropped", "effect", eff)
		}
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(NoticeLevel, string) {}

// History is an in-memory Navigator that records every move
type History struct {
	mu       sync.RWMutex
	entries  []string
	redirect string
}

// NewHistory starts a history at the given location
func NewHistory(start string) *History {
	if start == "" {
		start = PathRoot
	}
	return &History{entries: []string{start}}
}

// Navigate implements Navigator
func (h *History) Navigate(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, path)
	h.redirect = ""
}

// Redirect implements Navigator. The location is kept; the pending
// external URL is available through PendingRedirect.
func (h *History) Redirect(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redirect = url
}

// Location implements Navigator
func (h *History) Location() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[len(h.entries)-1]
}

// PendingRedirect returns and clears the external URL requested last
func (h *History) PendingRedirect() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	url := h.redirect
	h.redirect = ""
	return url
}

// Entries returns a copy of the visited locations
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// Notice is a recorded notification
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// NoticeBoard is an in-memory Notifier that keeps notifications until
// they are drained by a view.
type NoticeBoard struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
	now     func() time.Time
}

// NewNoticeBoard creates a board keeping at most limit notices
func NewNoticeBoard(limit int) *NoticeBoard {
	if limit <= 0 {
		limit = 20
	}
	return &NoticeBoard{limit: limit, now: time.Now}
}

// Notify implements Notifier
func (b *NoticeBoard) Notify(level NoticeLevel, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notice{Level: level, Message: message, At: b.now()})
	if len(b.notices) > b.limit {
		b.notices = b.notices[len(b.notices)-b.limit:]
	}
}

// Drain returns the pending notices and clears the board
func (b *NoticeBoard) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}
