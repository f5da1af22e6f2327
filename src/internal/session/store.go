package session

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Store holds the session and is its single source of truth. All mutation
// goes through the named operations below; nothing else in the app writes
// session fields. Every operation that touches Token recomputes
// IsAuthenticated in the same critical section, so the derived flag can
// never be observed out of sync with the token.
type Store struct {
	mu   sync.Mutex
	snap Snapshot

	// deliverMu serializes persist-hook and subscriber delivery so
	// concurrent mutators publish snapshots in mutation order.
	deliverMu sync.Mutex

	onPersist func(PersistedState)
	subs      []chan Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// OnPersist registers the hook invoked with the durable subset after every
// mutation of a persisted field. At most one hook is supported; the
// persistence layer installs it during wiring, before any mutator runs.
func (s *Store) OnPersist(fn func(PersistedState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPersist = fn
}

// Subscribe returns a channel receiving a snapshot after every mutation.
// Delivery coalesces to the latest state: a slow consumer skips intermediate
// snapshots but always observes the most recent one.
func (s *Store) Subscribe() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Snapshot returns an atomic copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Generation returns the current authentication generation counter.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Generation
}

// SetToken sets the credential and recomputes IsAuthenticated atomically.
func (s *Store) SetToken(token string) {
	s.mutate(true, func() {
		s.snap.Token = token
		s.setAuthenticated(token != "")
	})
}

// SetUser replaces the cached profile without touching authentication state.
func (s *Store) SetUser(user *User) {
	s.mutate(true, func() {
		s.snap.User = user
	})
}

// Login is the only sanctioned transition into a fully authenticated state:
// token, profile, the derived flag and the verification status change in one
// atomic update, so no observer can see a token without its user.
func (s *Store) Login(token string, user *User) {
	s.mutate(true, func() {
		s.snap.Token = token
		s.snap.User = user
		s.snap.IsVerified = user != nil && user.IsEmailVerified
		s.setAuthenticated(true)
	})
}

// Logout resets the authentication fields and the transient verification
// markers. ProjectID and ExpoPushToken are retained: the last project
// context and the registered device token are device state, not identity.
// Components holding connections or listeners observe the transition and
// release their resources themselves.
func (s *Store) Logout() {
	s.mutate(true, func() {
		s.snap.Token = ""
		s.snap.User = nil
		s.snap.IsVerified = false
		s.snap.PendingVerification = false
		s.snap.RegistrationEmail = ""
		s.setAuthenticated(false)
	})
}

// SetPendingVerification marks a registration as awaiting OTP confirmation.
// It is valid only while unauthenticated; on an authenticated session the
// call is dropped.
func (s *Store) SetPendingVerification(email string) {
	s.mutate(false, func() {
		if s.snap.IsAuthenticated {
			logrus.Warn("Ignoring pending-verification mark on an authenticated session")
			return
		}
		s.snap.PendingVerification = true
		s.snap.RegistrationEmail = email
	})
}

// SetVerified records the backend's verification outcome. Verifying clears
// the pending flag, un-verifying re-arms it.
func (s *Store) SetVerified(status bool) {
	s.mutate(true, func() {
		s.snap.IsVerified = status
		s.snap.PendingVerification = !status
	})
}

// ClearRegistrationState abandons an in-flight verification flow without
// touching authentication.
func (s *Store) ClearRegistrationState() {
	s.mutate(false, func() {
		s.snap.PendingVerification = false
		s.snap.RegistrationEmail = ""
	})
}

func (s *Store) SetProjectID(id string) {
	s.mutate(true, func() {
		s.snap.ProjectID = id
	})
}

func (s *Store) SetExpoPushToken(token string) {
	s.mutate(true, func() {
		s.snap.ExpoPushToken = token
	})
}

// setAuthenticated must be called with the lock held. A flip of the derived
// flag is an authentication transition and bumps the generation counter.
func (s *Store) setAuthenticated(authed bool) {
	if s.snap.IsAuthenticated != authed {
		s.snap.Generation++
	}
	s.snap.IsAuthenticated = authed
}

// restore hydrates the store from persisted state without re-triggering the
// persist hook. Used only by Persistence at boot, before observers attach.
func (s *Store) restore(st PersistedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Token = st.Token
	s.snap.User = st.User
	s.snap.IsVerified = st.IsVerified
	s.snap.ProjectID = st.ProjectID
	s.snap.ExpoPushToken = st.ExpoPushToken
	// The derived flag is recomputed from the token, never trusted from
	// storage, so a hand-edited or stale record cannot desync the invariant.
	s.setAuthenticated(st.Token != "")
}

func (s *Store) mutate(persist bool, fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snap
	hook := s.onPersist
	subs := s.subs
	// Acquired before the state lock is released: a later mutator cannot
	// overtake this one's delivery, so the last snapshot any sink sees is
	// the store's final state. Delivery itself never blocks, so the
	// window is short.
	s.deliverMu.Lock()
	s.mu.Unlock()
	defer s.deliverMu.Unlock()

	if persist && hook != nil {
		hook(snap.persisted())
	}
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
