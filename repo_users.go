package gate

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed record store
type Users interface {
	repository.Repository[*User]
	UserRecords
	ProfileWriter
	UserProvisioner

	FindUserByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, id string, metadata UserMetadata) (*User, error)
	ProvisionUserTx(ctx context.Context, tx bun.IDB, id, email string, metadata UserMetadata) (*User, error)
}

// UsersOption customizes the users repository
type UsersOption func(*users)

// WithUsersDefaultRole sets the role given to provisioned records.
// Invalid roles store an empty role, which grants no access.
func WithUsersDefaultRole(role Role) UsersOption {
	return func(u *users) {
		u.defaultRole = role
	}
}

type users struct {
	repository.Repository[*User]
	db          *bun.DB
	defaultRole Role
}

var (
	_ Users                        = (*users)(nil)
	_ UserRecords                  = (*users)(nil)
	_ ProfileWriter                = (*users)(nil)
	_ UserProvisioner              = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// DefaultProvisionedRole is the role of records created on first sign in
const DefaultProvisionedRole = RoleObserver

// NewUsersRepository creates the users repository
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	u := &users{
		Repository:  repo,
		db:          db,
		defaultRole: DefaultProvisionedRole,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}

	return u
}

func (a *users) FindUserByID(ctx context.Context, id string) (*User, error) {
	return a.FindUserByIDTx(ctx, a.db, id)
}

func (a *users) FindUserByIDTx(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound.Clone().
			WithMetadata(map[string]any{
				"id": id,
			})
	}

	record, err := a.Repository.GetByIDTx(ctx, tx, uid.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound.Clone().
				WithMetadata(map[string]any{
					"id": id,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) UpdateProfile(ctx context.Context, id string, metadata UserMetadata) (*User, error) {
	return a.UpdateProfileTx(ctx, a.db, id, metadata)
}

func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, id string, metadata UserMetadata) (*User, error) {
	current, err := a.FindUserByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	_, err = tx.NewUpdate().
		Model((*User)(nil)).
		Set("first_name = ?", strings.TrimSpace(metadata.FirstName)).
		Set("last_name = ?", strings.TrimSpace(metadata.LastName)).
		Set("phone_number = ?", strings.TrimSpace(metadata.PhoneNumber)).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", current.ID.String()).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return a.FindUserByIDTx(ctx, tx, id)
}

// ProvisionUser returns the record of id, creating it with the default
// role and the identity metadata when it does not exist yet
func (a *users) ProvisionUser(ctx context.Context, id, email string, metadata UserMetadata) (*User, error) {
	return a.ProvisionUserTx(ctx, a.db, id, email, metadata)
}

func (a *users) ProvisionUserTx(ctx context.Context, tx bun.IDB, id, email string, metadata UserMetadata) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound.Clone().
			WithMetadata(map[string]any{
				"id": id,
			})
	}

	record := &User{
		ID:          uid,
		Role:        string(a.defaultRole),
		Email:       email,
		FirstName:   strings.TrimSpace(metadata.FirstName),
		LastName:    strings.TrimSpace(metadata.LastName),
		PhoneNumber: strings.TrimSpace(metadata.PhoneNumber),
	}
	prepareUserDefaults(record)

	return a.Repository.GetOrCreateTx(ctx, tx, record)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))

	// unknown roles are stored empty so they resolve to no access
	if role, ok := ParseRole(record.Role); ok {
		record.Role = string(role)
	} else {
		record.Role = ""
	}
}
