package gate

import (
	"context"

	"github.com/goliatone/go-repository-bun"
)

// RoleResolver looks up the role of a user in the record store. It never
// fails: any problem resolves to RoleNone, which grants no access.
type RoleResolver struct {
	records UserRecords
	logger  Logger
}

// NewRoleResolver creates a resolver over the record store
func NewRoleResolver(records UserRecords, logger Logger) *RoleResolver {
	return &RoleResolver{
		records: records,
		logger:  normalizeLogger(logger),
	}
}

// ResolveRole performs a single lookup. There is no retry and no cache.
func (r *RoleResolver) ResolveRole(ctx context.Context, userID string) Role {
	if userID == "" || r.records == nil {
		return RoleNone
	}

	user, err := r.records.FindUserByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			r.logger.Warn("role lookup found no record", "user_id", userID)
		} else {
			r.logger.Error("role lookup failed", "user_id", userID, "error", err)
		}
		return RoleNone
	}

	if user == nil {
		r.logger.Warn("role lookup found no record", "user_id", userID)
		return RoleNone
	}

	role, ok := ParseRole(user.Role)
	if !ok {
		r.logger.Warn("record carries an unknown role", "user_id", userID, "role", user.Role)
		return RoleNone
	}

	return role
}
