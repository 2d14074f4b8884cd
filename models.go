package gate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the backing record for an authenticated identity
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          string     `bun:"role,notnull" json:"role,omitempty"`
	Email         string     `bun:"email,nullzero,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	PhoneNumber   string     `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPhoneNumber reports whether the mandatory phone number is on file
func (u *User) HasPhoneNumber() bool {
	return u != nil && strings.TrimSpace(u.PhoneNumber) != ""
}

// Metadata returns the profile fields of the record
func (u *User) Metadata() UserMetadata {
	if u == nil {
		return UserMetadata{}
	}
	return UserMetadata{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
	}
}

// UserMetadata are the profile fields attached at sign up and
// profile completion.
type UserMetadata struct {
	FirstName   string `json:"firstName,omitempty" form:"first_name"`
	LastName    string `json:"lastName,omitempty" form:"last_name"`
	PhoneNumber string `json:"phoneNumber,omitempty" form:"phone_number"`
}

// ToMap renders the metadata the way identity providers store it
func (m UserMetadata) ToMap() map[string]any {
	out := map[string]any{}
	if m.FirstName != "" {
		out["firstName"] = m.FirstName
	}
	if m.LastName != "" {
		out["lastName"] = m.LastName
	}
	if m.PhoneNumber != "" {
		out["phoneNumber"] = m.PhoneNumber
	}
	return out
}

// MetadataFromMap reads provider metadata, ignoring unknown keys
func MetadataFromMap(raw map[string]any) UserMetadata {
	get := func(key string) string {
		if v, ok := raw[key].(string); ok {
			return v
		}
		return ""
	}
	return UserMetadata{
		FirstName:   get("firstName"),
		LastName:    get("lastName"),
		PhoneNumber: get("phoneNumber"),
	}
}
