package lifecycle

import (
	"context"
	"sync"

	"buildhub-client/src/internal/routeguard"
	"buildhub-client/src/internal/session"

	"github.com/sirupsen/logrus"
)

// Realtime is the connection surface the runtime drives on authentication
// transitions.
type Realtime interface {
	ConnectWithToken(ctx context.Context, token string) error
	Disconnect()
}

// PushPipeline is the registration pipeline gated by the session state.
type PushPipeline interface {
	Run(ctx context.Context, snap session.Snapshot)
	Teardown()
}

// Runtime owns the boot sequence and the reactive wiring: hydrate the
// session before anything reads it, resolve the route guard, then react to
// every session change. Entering the authenticated state starts the push
// pipeline and the realtime connection; leaving it releases both. The store
// itself never touches these resources, it only publishes transitions.
type Runtime struct {
	store       *session.Store
	persistence *session.Persistence
	guard       *routeguard.Guard
	push        PushPipeline
	realtime    Realtime

	updates <-chan session.Snapshot
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	wasAuthed bool
	lastToken string
}

func NewRuntime(store *session.Store, persistence *session.Persistence, guard *routeguard.Guard, push PushPipeline, realtime Realtime) *Runtime {
	return &Runtime{
		store:       store,
		persistence: persistence,
		guard:       guard,
		push:        push,
		realtime:    realtime,
		done:        make(chan struct{}),
	}
}

// Start hydrates the session and begins reacting to its changes. Hydration
// failures are already degraded to a logged-out boot by the persistence
// layer, so the guard always leaves its bootstrapping state here.
func (rt *Runtime) Start(ctx context.Context) {
	if err := rt.persistence.Hydrate(ctx); err != nil {
		logrus.WithError(err).Info("Booting with an empty session")
	}
	rt.persistence.Bind()

	rt.updates = rt.store.Subscribe()

	snap := rt.store.Snapshot()
	rt.guard.Update(snap)
	rt.apply(ctx, snap)

	rt.wg.Add(1)
	go rt.loop(ctx)
}

// Stop tears down listeners and the realtime connection and flushes any
// pending session write.
func (rt *Runtime) Stop() {
	rt.once.Do(func() {
		close(rt.done)
	})
	rt.wg.Wait()
	rt.push.Teardown()
	rt.realtime.Disconnect()
	rt.persistence.Close()
}

func (rt *Runtime) loop(ctx context.Context) {
	defer rt.wg.Done()

	for {
		select {
		case snap := <-rt.updates:
			rt.guard.Update(snap)
			rt.apply(ctx, snap)
		case <-rt.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (rt *Runtime) apply(ctx context.Context, snap session.Snapshot) {
	switch {
	case snap.IsAuthenticated && !rt.wasAuthed:
		rt.onAuthenticated(ctx, snap)
	case !snap.IsAuthenticated && rt.wasAuthed:
		rt.onUnauthenticated()
	case snap.IsAuthenticated && snap.Token != rt.lastToken:
		// Token refresh on a live session: the realtime handshake must
		// carry the new identity, which means close-then-redial.
		rt.connect(ctx, snap.Token)
	}

	rt.wasAuthed = snap.IsAuthenticated
	rt.lastToken = snap.Token
}

func (rt *Runtime) onAuthenticated(ctx context.Context, snap session.Snapshot) {
	logrus.Info("Session authenticated, starting connectivity pipelines")

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.push.Run(ctx, snap)
	}()

	rt.connect(ctx, snap.Token)
}

func (rt *Runtime) onUnauthenticated() {
	logrus.Info("Session ended, releasing connectivity resources")
	rt.push.Teardown()
	rt.realtime.Disconnect()
}

func (rt *Runtime) connect(ctx context.Context, token string) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := rt.realtime.ConnectWithToken(ctx, token); err != nil {
			logrus.WithError(err).Warn("Realtime unavailable, live features disabled")
		}
	}()
}
