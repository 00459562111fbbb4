package guard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
)

const evaluationKey = "guard_evaluation"

// ViewHeader carries the id of the browser tab or view making a navigation.
// Navigations that share a view id supersede each other; requests without
// one are tracked on their own.
const ViewHeader = "X-View-ID"

// SessionFunc returns the credential store and identity resolver of the
// browser session behind a request.
type SessionFunc func(c *fiber.Ctx) (*credential.Store, IdentityResolver)

// Protect guards a route. Every request is a fresh navigation within its
// view, so verdicts never carry over between targets.
func Protect(g *Guard, policy Policy, route Route, session SessionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store, resolver := session(c)
		eval := g.Evaluate(c.UserContext(), Navigation{
			Namespace: store.Namespace() + "/" + viewID(c),
			Target:    c.OriginalURL(),
		}, route.Requirement, store, resolver)
		c.Locals(evaluationKey, eval)

		outcome := policy.Decide(eval.Verdict)
		switch outcome.Kind {
		case OutcomeRender:
			return c.Next()
		case OutcomeRedirect:
			return c.Redirect(outcome.Location, fiber.StatusSeeOther)
		default:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"view":   "loading",
				"target": eval.Target,
			})
		}
	}
}

// EvaluationFromContext returns the evaluation made by Protect.
func EvaluationFromContext(c *fiber.Ctx) (Evaluation, bool) {
	eval, ok := c.Locals(evaluationKey).(Evaluation)
	return eval, ok
}

func viewID(c *fiber.Ctx) string {
	if id := c.Get(ViewHeader); id != "" {
		return id
	}
	if id := c.Query("view_id"); id != "" {
		return id
	}
	return uuid.NewString()
}
