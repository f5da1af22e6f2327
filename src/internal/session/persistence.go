package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"buildhub-client/src/internal/models"
	"buildhub-client/src/internal/storage"

	"github.com/sirupsen/logrus"
)

// Persistence mirrors the durable subset of the store into storage and
// hydrates it back at boot. Writes go through a single goroutine with a
// coalescing queue, so mutators never block on storage I/O and successive
// saves cannot land out of order. Any storage failure degrades to "session
// does not survive restart"; it never propagates back into the store.
type Persistence struct {
	store   *Store
	backend storage.Storage
	timeout time.Duration

	ch        chan PersistedState
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewPersistence(store *Store, backend storage.Storage, timeout time.Duration) *Persistence {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Persistence{
		store:   store,
		backend: backend,
		timeout: timeout,
		ch:      make(chan PersistedState, 1),
		done:    make(chan struct{}),
	}
}

// Hydrate loads the persisted snapshot into the store. It must run before
// any other component reads the session. A missing, malformed or unreadable
// record leaves the store at its empty defaults: every failure path boots
// logged out, indistinguishable from a fresh install.
func (p *Persistence) Hydrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrSnapshotNotFound) {
			logrus.Debug("No persisted session, booting logged out")
			return nil
		}
		logrus.WithError(err).Warn("Session storage unreadable, booting logged out")
		return err
	}

	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		logrus.WithError(err).Warn("Persisted session malformed, booting logged out")
		return models.ErrSnapshotMalformed
	}

	if st.Token != "" && TokenExpired(st.Token) {
		logrus.Info("Persisted session token expired, booting logged out")
		if err := p.backend.Clear(ctx); err != nil {
			logrus.WithError(err).Debug("Failed to clear expired session snapshot")
		}
		return models.ErrSessionExpired
	}

	p.store.restore(st)
	logrus.WithField("authenticated", st.Token != "").Info("Session hydrated")
	return nil
}

// Bind installs the persist hook and starts the writer. Call after Hydrate
// so the boot-time restore does not write the record back to itself.
func (p *Persistence) Bind() {
	p.store.OnPersist(p.enqueue)
	p.wg.Add(1)
	go p.run()
}

// Close stops the writer after flushing any pending save.
func (p *Persistence) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Persistence) enqueue(st PersistedState) {
	for {
		select {
		case p.ch <- st:
			return
		default:
			// Drop the queued intermediate state; only the latest matters.
			select {
			case <-p.ch:
			default:
			}
		}
	}
}

func (p *Persistence) run() {
	defer p.wg.Done()

	for {
		select {
		case st := <-p.ch:
			p.save(st)
		case <-p.done:
			select {
			case st := <-p.ch:
				p.save(st)
			default:
			}
			return
		}
	}
}

func (p *Persistence) save(st PersistedState) {
	data, err := json.Marshal(st)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal session snapshot")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.backend.Save(ctx, data); err != nil {
		logrus.WithError(err).Warn("Failed to persist session, it will not survive a restart")
	}
}
