package routeguard

import (
	"strings"
	"sync"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/session"

	"github.com/sirupsen/logrus"
)

// State is the guard's view of the session lifecycle.
type State int

const (
	// Bootstrapping is the initial state while hydration is unresolved.
	// It is always transient: Update moves to one of the decided states
	// and the guard never returns here.
	Bootstrapping State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "bootstrapping"
	}
}

// Decision is the outcome of evaluating a requested destination.
// Pending means "render the neutral placeholder": hydration has not
// resolved and the guard refuses to guess.
type Decision struct {
	Pending    bool
	Allowed    bool
	RedirectTo string
}

// Guard decides which navigation stack the session may see. It starts in
// Bootstrapping and must be updated on every authentication change so a
// mid-session logout evicts the user from private destinations on the next
// evaluation.
type Guard struct {
	mu    sync.Mutex
	state State

	publicPrefix string
	publicEntry  string
	privateEntry string
}

func New(cfg *config.RoutesConfig) *Guard {
	return &Guard{
		state:        Bootstrapping,
		publicPrefix: cfg.PublicPrefix,
		publicEntry:  cfg.PublicEntry,
		privateEntry: cfg.PrivateEntry,
	}
}

// Update resolves the guard to a decided state from the session snapshot.
// The first call ends Bootstrapping; hydration failures reach this point as
// an empty snapshot, so the guard fails closed to Unauthenticated.
func (g *Guard) Update(snap session.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := Unauthenticated
	if snap.IsAuthenticated {
		next = Authenticated
	}

	if next != g.state {
		logrus.WithFields(logrus.Fields{
			"from": g.state.String(),
			"to":   next.String(),
		}).Debug("Route guard state changed")
	}
	g.state = next
}

// State returns the guard's current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Evaluate applies the redirect rule to a requested destination:
// a public destination on an authenticated session redirects to the private
// entry, a private destination on an unauthenticated session redirects to
// the public entry, anything else renders as requested.
func (g *Guard) Evaluate(destination string) Decision {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()

	if state == Bootstrapping {
		return Decision{Pending: true}
	}

	isPublic := g.isPublicRoute(destination)
	isAuthenticated := state == Authenticated

	switch {
	case isPublic && isAuthenticated:
		logrus.WithField("destination", destination).Debug("Redirecting authenticated user to private stack")
		return Decision{RedirectTo: g.privateEntry}
	case !isPublic && !isAuthenticated:
		logrus.WithField("destination", destination).Debug("Redirecting unauthenticated user to public stack")
		return Decision{RedirectTo: g.publicEntry}
	default:
		return Decision{Allowed: true}
	}
}

func (g *Guard) isPublicRoute(destination string) bool {
	return destination == g.publicPrefix || strings.HasPrefix(destination, g.publicPrefix+"/")
}
