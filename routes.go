package gate

import "fmt"

// Navigation targets exposed to the rest of the application
const (
	PathRoot            = "/"
	PathLogin           = "/login"
	PathRegister        = "/register"
	PathForgotPassword  = "/forgot-password"
	PathAuthCallback    = "/auth/callback"
	PathCompleteProfile = "/auth/complete-profile"
	PathObserver        = "/observer"
	PathClient          = "/client"
	PathStaff           = "/staff"
	PathAdmin           = "/admin"
)

// RouteTable maps every role to its landing path. Having one field per
// role means a new role does not compile until it has an entry.
type RouteTable struct {
	Admin    string
	Staff    string
	Client   string
	Observer string
}

// DefaultRouteTable returns the stock dashboard paths
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Admin:    PathAdmin,
		Staff:    PathStaff,
		Client:   PathClient,
		Observer: PathObserver,
	}
}

// Dashboard returns the landing path for the role. It panics for values
// outside the closed set, including RoleNone: callers must decide what
// an unresolved role means before asking.
func (t RouteTable) Dashboard(r Role) string {
	switch r {
	case RoleAdmin:
		return t.Admin
	case RoleStaff:
		return t.Staff
	case RoleClient:
		return t.Client
	case RoleObserver:
		return t.Observer
	default:
		panic(fmt.Sprintf("gate: route table has no entry for role %q", string(r)))
	}
}

// DashboardOrFallback returns the landing path for the role, or the
// observer path when the role is unresolved or unknown.
func (t RouteTable) DashboardOrFallback(r Role) string {
	if !r.IsValid() {
		return t.Observer
	}
	return t.Dashboard(r)
}

// ProtectedRoute declares a guarded view and its explicit allow-set
type ProtectedRoute struct {
	Path    string
	Allowed RoleSet
}

// ProtectedRoutes returns the guarded dashboards of the application
func ProtectedRoutes(table RouteTable) []ProtectedRoute {
	return []ProtectedRoute{
		{
			Path:    table.Observer,
			Allowed: NewRoleSet(RoleObserver, RoleClient, RoleStaff, RoleAdmin),
		},
		{
			Path:    table.Client,
			Allowed: NewRoleSet(RoleClient, RoleStaff, RoleAdmin),
		},
		{
			Path:    table.Staff,
			Allowed: NewRoleSet(RoleStaff, RoleAdmin),
		},
		{
			Path:    table.Admin,
			Allowed: NewRoleSet(RoleAdmin),
		},
	}
}

// PublicPaths are reachable without a session
func PublicPaths() []string {
	return []string{
		PathLogin,
		PathRegister,
		PathForgotPassword,
		PathAuthCallback,
		PathCompleteProfile,
	}
}
