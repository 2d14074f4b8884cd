package activitymap

import (
	"context"
	"strings"
	"time"

	gate "github.com/goliatone/go-auth-gate"
)

const (
	// MetadataKeyRole stores the role held when the event happened
	MetadataKeyRole = "role"
	// MetadataKeyEmail stores the address the action was made for
	MetadataKeyEmail = "email"
)

const (
	defaultChannel    = "gate"
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
)

// Record is a transport-agnostic activity shape for audit logs and
// downstream systems.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts a gate.ActivityEvent into a Record. Events raised
// before sign in (failed logins, password resets) fall back to the email
// and then to the anonymous actor.
func Normalize(event gate.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.UserID),
			strings.ToLower(strings.TrimSpace(event.Email)),
			o.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithChannel sets the channel of normalized records.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type of normalized records.
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			o.actorFallback = actorID
		}
	}
}

// WithClock sets the time source for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Sink adapts a record consumer into a gate.ActivitySink
func Sink(consume func(Record) error, opts ...Option) gate.ActivitySink {
	return gate.ActivitySinkFunc(func(_ context.Context, event gate.ActivityEvent) error {
		return consume(Normalize(event, opts...))
	})
}

func metadata(event gate.ActivityEvent) map[string]any {
	out := make(map[string]any, len(event.Metadata)+2)
	for key, value := range event.Metadata {
		out[key] = value
	}

	if event.Role.IsValid() {
		if _, exists := out[MetadataKeyRole]; !exists {
			out[MetadataKeyRole] = string(event.Role)
		}
	}

	if email := strings.TrimSpace(event.Email); email != "" {
		out[MetadataKeyEmail] = strings.ToLower(email)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
