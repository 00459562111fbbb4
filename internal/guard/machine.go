package guard

import "github.com/ecoai-civic/ecoai-client/internal/domain"

// event is an observation made while evaluating a navigation.
type event int

const (
	eventNoCredential event = iota
	eventUnauthenticated
	eventMissingCapability
	eventGranted
)

// next is the guard's transition function. It is total: every (state, event)
// pair maps to a state, and terminal states absorb every event.
func next(state domain.Verdict, ev event) domain.Verdict {
	if state.Terminal() {
		return state
	}
	switch ev {
	case eventNoCredential, eventUnauthenticated:
		return domain.VerdictUnauthorized
	case eventMissingCapability:
		return domain.VerdictForbidden
	case eventGranted:
		return domain.VerdictAuthorized
	default:
		// unknown observations fail closed
		return domain.VerdictUnauthorized
	}
}
