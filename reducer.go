package gate

// User facing messages
const (
	MsgLoginSucceeded        = "Logged in successfully"
	MsgRegistered            = "Registration successful! Please check your email to confirm your account."
	MsgPasswordResetSent     = "Password reset email sent. Please check your inbox."
	MsgLoggedOut             = "Logged out successfully"
	MsgCallbackSucceeded     = "Successfully signed in"
	MsgCallbackFailed        = "Authentication failed"
	MsgProfileCompleted      = "Profile completed successfully"
	MsgLoginFailed           = "Failed to log in"
	MsgOAuthFailed           = "Failed to sign in"
	MsgRegisterFailed        = "Failed to register"
	MsgRegisterNoUser        = "Registration failed. Please try again."
	MsgPasswordResetFailed   = "Failed to send reset email"
	MsgLogoutFailed          = "Failed to log out"
	MsgProfileCompleteFailed = "Failed to complete profile"
	MsgUnexpected            = "Something went wrong. Please try again."
)

// Reducer is the pure transition table of the auth state machine.
// It never performs IO; navigation and notifications come back as effects.
type Reducer struct {
	routes RouteTable
}

// NewReducer creates a reducer bound to a route table
func NewReducer(routes RouteTable) Reducer {
	return Reducer{routes: routes}
}

// Reduce applies ev using the default route table
func Reduce(state AuthState, ev Event) (AuthState, []Effect) {
	return NewReducer(DefaultRouteTable()).Reduce(state, ev)
}

// Reduce returns the next state and the effects of the transition
func (r Reducer) Reduce(state AuthState, ev Event) (AuthState, []Effect) {
	switch e := ev.(type) {
	case SessionChecked:
		if e.Session == nil || e.Session.UserID == "" {
			next := state.signedOut()
			next.Phase = settle(next, PhaseSessionChecked)
			return next, nil
		}
		state.IsAuthenticated = true
		state.UserID = e.Session.UserID
		state.Phase = PhaseSessionChecked
		return state, nil

	case RoleRequested:
		if !state.IsAuthenticated {
			return state, nil
		}
		state.Phase = PhaseRolePending
		return state, nil

	case RoleResolved:
		if !state.IsAuthenticated {
			// a sign out won the race; an orphan role must not leak in
			return state, nil
		}
		state.Role = normalizeRole(e.Role)
		state.Phase = settle(state, PhaseRoleResolved)
		return state, nil

	case SignedIn:
		if e.Session == nil || e.Session.UserID == "" {
			return state, nil
		}
		if state.UserID != e.Session.UserID {
			state.Role = RoleNone
		}
		state.IsAuthenticated = true
		state.UserID = e.Session.UserID
		state.Phase = PhaseRolePending
		return state, nil

	case SignedOut:
		next := state.signedOut()
		next.Phase = settle(next, PhaseSessionChecked)
		return next, nil

	case LoadingChanged:
		state.Loading = e.Loading
		switch {
		case e.Loading && state.Phase == PhaseReady:
			state.Phase = busy(state)
		case !e.Loading && state.Phase != PhaseRolePending:
			state.Phase = PhaseReady
		}
		return state, nil

	case ProfileIncomplete:
		return state, []Effect{Navigate{Path: PathCompleteProfile}}

	case NavigationRequested:
		return state, []Effect{Navigate{Path: e.Path}}

	case LoginSucceeded:
		state.IsAuthenticated = true
		state.UserID = e.UserID
		state.Role = normalizeRole(e.Role)
		state.Phase = settle(state, PhaseRoleResolved)
		return state, []Effect{
			Navigate{Path: r.routes.DashboardOrFallback(state.Role)},
			Notify{Level: NoticeSuccess, Message: MsgLoginSucceeded},
		}

	case OAuthStarted:
		return state, []Effect{Redirect{URL: e.Redirect.URL}}

	case Registered:
		return state, []Effect{
			Notify{Level: NoticeSuccess, Message: MsgRegistered},
			Navigate{Path: PathLogin},
		}

	case PasswordResetRequested:
		return state, []Effect{
			Notify{Level: NoticeSuccess, Message: MsgPasswordResetSent},
			Navigate{Path: PathLogin},
		}

	case LoggedOut:
		next := state.signedOut()
		next.Phase = settle(next, PhaseSessionChecked)
		return next, []Effect{
			Navigate{Path: PathLogin},
			Notify{Level: NoticeSuccess, Message: MsgLoggedOut},
		}

	case ActionFailed:
		msg := e.Message
		if msg == "" {
			msg = MsgUnexpected
		}
		return state, []Effect{Notify{Level: NoticeError, Message: msg}}

	case CallbackResolved:
		if e.Session == nil || e.Session.UserID == "" {
			next := state.signedOut()
			next.Phase = settle(next, PhaseSessionChecked)
			return next, []Effect{
				Notify{Level: NoticeError, Message: MsgCallbackFailed},
				Navigate{Path: PathLogin},
			}
		}
		state.IsAuthenticated = true
		state.UserID = e.Session.UserID
		state.Role = normalizeRole(e.Role)
		state.Phase = settle(state, PhaseRoleResolved)
		if !e.ProfileComplete {
			return state, []Effect{Navigate{Path: PathCompleteProfile}}
		}
		return state, []Effect{
			Notify{Level: NoticeSuccess, Message: MsgCallbackSucceeded},
			Navigate{Path: r.routes.Observer},
		}

	case ProfileCompleted:
		return state, []Effect{
			Notify{Level: NoticeSuccess, Message: MsgProfileCompleted},
			Navigate{Path: r.routes.Observer},
		}
	}

	return state, nil
}

// settle returns PhaseReady when nothing holds the state in loading,
// otherwise the intermediate phase.
func settle(state AuthState, phase Phase) Phase {
	if state.Loading {
		return phase
	}
	return PhaseReady
}

// busy is the phase a settled state falls back to while work is in flight
func busy(state AuthState) Phase {
	if state.IsAuthenticated {
		return PhaseRoleResolved
	}
	return PhaseSessionChecked
}

func normalizeRole(r Role) Role {
	if r.IsValid() {
		return r
	}
	return RoleNone
}
