package gate

import "github.com/medportal/portal-backend/internal/user"

type Kind int

const (
	KindLoading Kind = iota
	KindDenied
	KindAllowed
)

type Reason int

const (
	NoReason Reason = iota
	AuthenticationRequired
	AccessDenied
)

func (r Reason) String() string {
	switch r {
	case AuthenticationRequired:
		return "authentication_required"
	case AccessDenied:
		return "access_denied"
	}
	return ""
}

type Outcome struct {
	Kind   Kind
	Reason Reason
	User   *user.User
}

// Authorize is the single place a route's access decision is made. An empty
// required role admits any signed-in user.
func Authorize(g *Gate, required user.Role) Outcome {
	g.mu.Lock()
	state, current := g.state, g.current
	g.mu.Unlock()

	switch {
	case state == Loading:
		return Outcome{Kind: KindLoading}
	case state == Unauthenticated || current == nil:
		return Outcome{Kind: KindDenied, Reason: AuthenticationRequired}
	case required != "" && current.Role != required:
		return Outcome{Kind: KindDenied, Reason: AccessDenied, User: current}
	}
	return Outcome{Kind: KindAllowed, User: current}
}
