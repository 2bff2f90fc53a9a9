package auth

// State is the dashboard variant selected for a session.
type State string

const (
	StateResolving       State = "resolving"
	StateUnauthenticated State = "unauthenticated"
	StateAdmin           State = "admin"
	StateHR              State = "hr"
	StateEmployee        State = "employee"
	StateDenied          State = "denied"
)

// Route picks exactly one dashboard state from the session's principal and loading flag.
func Route(principal *Principal, loading bool) State {
	if loading {
		return StateResolving
	}
	if principal == nil {
		return StateUnauthenticated
	}
	role, ok := ParseRole(string(principal.Role))
	if !ok {
		return StateDenied
	}
	switch role {
	case RoleAdmin:
		return StateAdmin
	case RoleHR:
		return StateHR
	case RoleEmployee:
		return StateEmployee
	}
	return StateDenied
}

func (s State) Terminal() bool {
	return s != StateResolving
}
