// Package guard decides, per navigation, whether a view may render.
package guard

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
)

// IdentityResolver resolves the identity behind the stored credential.
type IdentityResolver interface {
	Resolve(ctx context.Context) domain.Identity
}

// Navigation is a request to show Target in a namespace.
type Navigation struct {
	Namespace string
	Target    string
}

// Evaluation is the result of guarding one navigation.
type Evaluation struct {
	Target   string
	Verdict  domain.Verdict
	Identity domain.Identity
	// Stale is set when a newer navigation superseded this one. The verdict is
	// then Loading and must not be acted upon.
	Stale bool
}

// Guard evaluates navigations against route requirements.
type Guard struct {
	tracker Tracker
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New builds a guard.
func New(tracker Tracker, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{tracker: tracker, logger: logger, metrics: metrics}
}

// Evaluate runs the verdict machine for nav. It always starts from Loading,
// and it never reuses a verdict from an earlier navigation.
func (g *Guard) Evaluate(ctx context.Context, nav Navigation, req domain.Requirement, store *credential.Store, resolver IdentityResolver) Evaluation {
	ticket := g.tracker.Begin(ctx, nav.Namespace, nav.Target)
	state := domain.VerdictLoading
	identity := domain.Anonymous

	switch {
	case !req.Protected:
		state = next(state, eventGranted)
	case !store.HasCredential(ctx):
		state = next(state, eventNoCredential)
	default:
		identity = resolver.Resolve(ctx)
		switch {
		case !identity.Authenticated:
			state = next(state, eventUnauthenticated)
		case !identity.Has(req.Capability):
			state = next(state, eventMissingCapability)
		default:
			state = next(state, eventGranted)
		}
	}

	if !g.tracker.Settle(ctx, ticket) {
		g.logger.Debug("discarding stale verdict",
			zap.String("namespace", nav.Namespace),
			zap.String("target", nav.Target),
			zap.Stringer("verdict", state),
		)
		return Evaluation{Target: nav.Target, Verdict: domain.VerdictLoading, Stale: true}
	}

	g.metrics.RecordVerdict(state.String())
	return Evaluation{Target: nav.Target, Verdict: state, Identity: identity}
}

// OutcomeKind says what the front end must do with a verdict.
type OutcomeKind int

const (
	OutcomePlaceholder OutcomeKind = iota
	OutcomeRender
	OutcomeRedirect
)

// Outcome is the rendering decision for a verdict.
type Outcome struct {
	Kind     OutcomeKind
	Location string
	Replace  bool
}

// Policy maps verdicts to outcomes.
type Policy struct {
	LoginPath string
	HomePath  string
}

// Decide returns the outcome for v. Loading renders a neutral placeholder:
// neither protected content nor a premature redirect.
func (p Policy) Decide(v domain.Verdict) Outcome {
	switch v {
	case domain.VerdictAuthorized:
		return Outcome{Kind: OutcomeRender}
	case domain.VerdictUnauthorized:
		return Outcome{Kind: OutcomeRedirect, Location: p.LoginPath, Replace: true}
	case domain.VerdictForbidden:
		return Outcome{Kind: OutcomeRedirect, Location: p.HomePath, Replace: true}
	default:
		return Outcome{Kind: OutcomePlaceholder}
	}
}
