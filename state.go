package gate

// Phase is the position of the machine in its session lifecycle
type Phase string

const (
	// PhaseInit nothing is known yet
	PhaseInit Phase = "INIT"
	// PhaseSessionChecked the session was fetched
	PhaseSessionChecked Phase = "SESSION_CHECKED"
	// PhaseRolePending the role lookup is in flight
	PhaseRolePending Phase = "ROLE_PENDING"
	// PhaseRoleResolved the role lookup finished, the role may be RoleNone
	PhaseRoleResolved Phase = "ROLE_RESOLVED"
	// PhaseReady no work in flight
	PhaseReady Phase = "READY"
)

// AuthState is the state tuple owned by the Store.
//
// While Loading is true consumers must not treat IsAuthenticated or Role
// as final. An unauthenticated state never carries a role or user id.
type AuthState struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	Role            Role   `json:"role,omitempty"`
	Loading         bool   `json:"loading"`
	UserID          string `json:"user_id,omitempty"`
	Phase           Phase  `json:"phase"`
}

// InitialState is the state the application boots with
func InitialState() AuthState {
	return AuthState{
		Loading: true,
		Phase:   PhaseInit,
	}
}

// IsReady reports whether consumers can act on the state
func (s AuthState) IsReady() bool {
	return !s.Loading
}

// HasRole reports whether the state carries a resolved role
func (s AuthState) HasRole() bool {
	return s.IsAuthenticated && s.Role.IsValid()
}

func (s AuthState) signedOut() AuthState {
	s.IsAuthenticated = false
	s.Role = RoleNone
	s.UserID = ""
	return s
}
