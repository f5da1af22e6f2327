package push

import (
	"context"
	"errors"
	"sync"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"
	"buildhub-client/src/internal/session"

	"github.com/sirupsen/logrus"
)

// Backend is the registration endpoint consumed by the pipeline.
type Backend interface {
	RegisterPushToken(ctx context.Context, deviceToken, sessionToken string) error
}

// Registrar runs the best-effort push registration pipeline for an
// authenticated session: ensure the notification channel, obtain permission,
// fetch a device token, register it with the backend and install the
// foreground listeners. Every step tolerates failure by aborting the
// pipeline and leaving the session fully usable. The session generation
// captured at the start guards the final write and the listener commit, so
// a registration racing a logout cannot resurrect stale push state or leave
// listeners installed on a logged-out session.
type Registrar struct {
	store    *session.Store
	backend  Backend
	platform Platform
	broker   Broker
	cfg      *config.Configuration

	// OnReceived and OnResponse handle foreground notification events.
	// Set before the first Run; defaults log the event.
	OnReceived func(models.Notification)
	OnResponse func(models.Notification)

	mu      sync.Mutex
	cancels []func() error
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewRegistrar(store *session.Store, backend Backend, platform Platform, broker Broker, cfg *config.Configuration) *Registrar {
	return &Registrar{
		store:    store,
		backend:  backend,
		platform: platform,
		broker:   broker,
		cfg:      cfg,
	}
}

// Run executes the pipeline for the given authenticated snapshot. It is
// called once per authentication transition; re-running tears down previous
// listeners before installing new ones.
func (r *Registrar) Run(ctx context.Context, snap session.Snapshot) {
	if !snap.IsAuthenticated || snap.Token == "" {
		logrus.Debug("Push pipeline skipped, session not authenticated")
		return
	}

	if err := r.platform.EnsureChannel(ctx, r.cfg.Push.ChannelName); err != nil {
		logrus.WithError(err).Warn("Failed to ensure notification channel, push disabled")
		return
	}

	status, err := r.platform.Permissions(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read notification permission, push disabled")
		return
	}
	if status != PermissionGranted {
		status, err = r.platform.RequestPermissions(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Notification permission request failed, push disabled")
			return
		}
	}
	if status != PermissionGranted {
		logrus.Info("Notification permission not granted, push disabled")
		return
	}

	if r.cfg.Push.RequirePhysicalDevice && !r.platform.IsPhysicalDevice() {
		logrus.Info("Not a physical device, push disabled")
		return
	}

	deviceToken, err := r.platform.DeviceToken(ctx)
	if err != nil || deviceToken == "" {
		logrus.WithError(err).Warn("Failed to obtain device push token, push disabled")
		return
	}

	if deviceToken == snap.ExpoPushToken {
		logrus.WithField("device_token", deviceToken).Debug("Device token already registered, skipping backend call")
	} else {
		if err := r.backend.RegisterPushToken(ctx, deviceToken, snap.Token); err != nil {
			logrus.WithError(err).Error("Push token registration failed, continuing without push")
			return
		}
	}

	// The session may have logged out (or re-authenticated) while the
	// permission prompt or registration call was in flight. Stale work
	// must not write back.
	if r.store.Generation() != snap.Generation {
		logrus.WithFields(logrus.Fields{
			"started": snap.Generation,
			"current": r.store.Generation(),
		}).Info("Session changed during push registration, discarding result")
		return
	}

	r.store.SetExpoPushToken(deviceToken)

	if err := r.installListeners(deviceToken, snap.Generation); err != nil {
		if errors.Is(err, models.ErrSessionChanged) {
			logrus.Info("Session changed during listener setup, discarding listeners")
			return
		}
		logrus.WithError(err).Warn("Failed to install notification listeners")
		return
	}

	logrus.WithField("device_token", deviceToken).Info("Push registration complete")
}

// Teardown removes the foreground listeners installed by the last Run.
// Installation and removal are paired 1:1; Teardown is idempotent.
func (r *Registrar) Teardown() {
	r.mu.Lock()
	cancels := r.cancels
	done := r.done
	r.cancels = nil
	r.done = nil
	r.mu.Unlock()

	for _, cancel := range cancels {
		if err := cancel(); err != nil {
			logrus.WithError(err).Warn("Failed to remove notification listener")
		}
	}
	if done != nil {
		close(done)
	}
	r.wg.Wait()
}

// ListenerCount reports how many listeners are currently installed.
func (r *Registrar) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}

func (r *Registrar) installListeners(deviceToken string, generation uint64) error {
	// Cleanup-then-setup: never two installs without a removal in between.
	r.Teardown()

	if r.broker == nil {
		return models.ErrBrokerUnavailable
	}

	received, cancelReceived, err := r.broker.Subscribe(r.cfg.Queue.RabbitMQ.ReceivedQueue, deviceToken)
	if err != nil {
		return err
	}

	responses, cancelResponse, err := r.broker.Subscribe(r.cfg.Queue.RabbitMQ.ResponseQueue, deviceToken)
	if err != nil {
		if cerr := cancelReceived(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to remove notification listener")
		}
		return err
	}

	done := make(chan struct{})

	r.mu.Lock()
	// A logout while the subscriptions were being created bumps the
	// generation and runs Teardown against an empty listener set. The
	// commit re-checks so the fresh subscriptions cannot outlive the
	// session they were created for.
	if r.store.Generation() != generation {
		r.mu.Unlock()
		for _, cancel := range []func() error{cancelReceived, cancelResponse} {
			if cerr := cancel(); cerr != nil {
				logrus.WithError(cerr).Warn("Failed to remove notification listener")
			}
		}
		return models.ErrSessionChanged
	}
	r.cancels = []func() error{cancelReceived, cancelResponse}
	r.done = done
	r.mu.Unlock()

	r.wg.Add(2)
	go r.listen(received, done, r.handleReceived)
	go r.listen(responses, done, r.handleResponse)

	return nil
}

func (r *Registrar) listen(ch <-chan models.Notification, done <-chan struct{}, handle func(models.Notification)) {
	defer r.wg.Done()
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			handle(n)
		case <-done:
			return
		}
	}
}

func (r *Registrar) handleReceived(n models.Notification) {
	if r.OnReceived != nil {
		r.OnReceived(n)
		return
	}
	logrus.WithFields(logrus.Fields{
		"id":    n.ID,
		"title": n.Title,
	}).Info("Notification received")
}

func (r *Registrar) handleResponse(n models.Notification) {
	if r.OnResponse != nil {
		r.OnResponse(n)
		return
	}
	logrus.WithField("id", n.ID).Info("Notification response")
}
