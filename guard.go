package gate

// Outcome is the verdict of the route guard
type Outcome int

const (
	// OutcomeLoading the state is not final, show a neutral indicator
	OutcomeLoading Outcome = iota
	// OutcomeRedirect send the user to Decision.Path
	OutcomeRedirect
	// OutcomeRender show the protected view
	OutcomeRender
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRender:
		return "render"
	default:
		return "unknown"
	}
}

// Decision is returned by Guard.Check
type Decision struct {
	Outcome Outcome
	Path    string
}

// Guard decides access to protected views from the current AuthState
type Guard struct {
	routes RouteTable
}

// NewGuard creates a guard using the route table for role redirects
func NewGuard(routes RouteTable) Guard {
	return Guard{routes: routes}
}

// Check evaluates the rules in order. An authenticated user without a
// role is sent to the login page; a user on the wrong dashboard is sent
// to their own.
func (g Guard) Check(state AuthState, allowed RoleSet) Decision {
	switch {
	case state.Loading:
		return Decision{Outcome: OutcomeLoading}
	case !state.IsAuthenticated:
		return Decision{Outcome: OutcomeRedirect, Path: PathLogin}
	case !state.Role.IsValid():
		return Decision{Outcome: OutcomeRedirect, Path: PathLogin}
	case !allowed.Contains(state.Role):
		return Decision{Outcome: OutcomeRedirect, Path: g.routes.Dashboard(state.Role)}
	default:
		return Decision{Outcome: OutcomeRender}
	}
}
