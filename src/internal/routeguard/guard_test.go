package routeguard

import (
	"testing"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/session"
)

func testGuard() *Guard {
	return New(&config.RoutesConfig{
		PublicPrefix: "/auth",
		PublicEntry:  "/auth/login",
		PrivateEntry: "/projects",
	})
}

func TestGuardStartsBootstrapping(t *testing.T) {
	g := testGuard()

	if g.State() != Bootstrapping {
		t.Fatalf("initial state = %v, want Bootstrapping", g.State())
	}
	if d := g.Evaluate("/projects"); !d.Pending {
		t.Fatalf("decision before hydration = %+v, want Pending", d)
	}
}

func TestGuardFailsClosed(t *testing.T) {
	g := testGuard()

	// A failed hydration reaches the guard as an empty snapshot.
	g.Update(session.Snapshot{})

	if g.State() != Unauthenticated {
		t.Fatalf("state after empty update = %v, want Unauthenticated", g.State())
	}
	if d := g.Evaluate("/projects"); d.RedirectTo != "/auth/login" {
		t.Fatalf("decision = %+v, want redirect to public entry", d)
	}
}

func TestGuardRedirectRules(t *testing.T) {
	tests := []struct {
		name        string
		authed      bool
		destination string
		want        Decision
	}{
		{"public destination while logged out", false, "/auth/login", Decision{Allowed: true}},
		{"public sub-route while logged out", false, "/auth/register", Decision{Allowed: true}},
		{"private destination while logged out", false, "/projects", Decision{RedirectTo: "/auth/login"}},
		{"deep private destination while logged out", false, "/projects/42/tasks", Decision{RedirectTo: "/auth/login"}},
		{"public destination while logged in", true, "/auth/login", Decision{RedirectTo: "/projects"}},
		{"private destination while logged in", true, "/projects/42", Decision{Allowed: true}},
		{"prefix-alike private destination", false, "/authority", Decision{RedirectTo: "/auth/login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGuard()
			g.Update(session.Snapshot{IsAuthenticated: tt.authed})

			if got := g.Evaluate(tt.destination); got != tt.want {
				t.Fatalf("Evaluate(%q) = %+v, want %+v", tt.destination, got, tt.want)
			}
		})
	}
}

func TestMidSessionLogoutEvictsPrivateRoutes(t *testing.T) {
	g := testGuard()

	g.Update(session.Snapshot{IsAuthenticated: true, Token: "tok"})
	if d := g.Evaluate("/projects/42"); !d.Allowed {
		t.Fatalf("decision while authenticated = %+v, want allowed", d)
	}

	// 401-triggered logout: the very next evaluation must evict.
	g.Update(session.Snapshot{})
	if d := g.Evaluate("/projects/42"); d.RedirectTo != "/auth/login" {
		t.Fatalf("decision after logout = %+v, want redirect to public entry", d)
	}
}
