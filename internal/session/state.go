package session

import "github.com/jaekwang-park/todo-notes/internal/model"

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time view of the session. Principal is set only
// when State is StateAuthenticated.
type Status struct {
	State     State            `json:"state"`
	Principal *model.Principal `json:"principal,omitempty"`
}

// canTransition reports whether from -> to is a legal edge.
func canTransition(from, to State) bool {
	switch from {
	case StateLoading:
		return to == StateAuthenticated || to == StateAnonymous
	case StateAuthenticated:
		return to == StateAnonymous
	case StateAnonymous:
		return to == StateAuthenticated
	}
	return false
}
