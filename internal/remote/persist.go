package remote

import (
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/storage"
)

// Persister writes sync-mode mutations through to storage from the session's
// side-effect callbacks. Failures are logged and kept for Wait; they never roll
// back the local change.
type Persister struct {
	store storage.Provider

	wg       sync.WaitGroup
	mu       sync.Mutex
	expected int
	errs     []error
}

// NewPersister returns a persister writing to p.
func NewPersister(p storage.Provider) *Persister {
	return &Persister{store: p}
}

// Callbacks returns the sync callbacks to hand to events.NewSession.
func (p *Persister) Callbacks() events.SyncCallbacks {
	return events.SyncCallbacks{
		OnAdd: func(e models.Event) {
			p.run(events.KindAdd, e.ID, func() error {
				_, err := p.store.AddEvent(e)
				return err
			})
		},
		OnUpdate: func(id string, patch models.EventPatch) {
			p.run(events.KindUpdate, id, func() error {
				_, err := p.store.UpdateEvent(id, patch)
				return err
			})
		},
		OnDelete: func(id string) {
			p.run(events.KindDelete, id, func() error {
				return p.store.DeleteEvent(id)
			})
		},
	}
}

// Expect registers n upcoming callbacks for Wait to block on. Callbacks that were
// not expected still run but nobody waits for them.
func (p *Persister) Expect(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expected += n
	p.wg.Add(n)
}

// Release drops n expectations whose callbacks will never fire.
func (p *Persister) Release(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > p.expected {
		n = p.expected
	}
	p.expected -= n
	p.wg.Add(-n)
}

// Wait blocks until every expected callback has run and returns their failures.
func (p *Persister) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

func (p *Persister) run(kind events.Kind, id string, fn func() error) {
	err := fn()
	if err != nil {
		logger.Warn("Failed to persist local change", "kind", kind, "id", id, "error", err)
		err = fmt.Errorf("persist %s %s: %w", kind, id, err)
	}

	p.mu.Lock()
	tracked := p.expected > 0
	if tracked {
		p.expected--
		if err != nil {
			p.errs = append(p.errs, err)
		}
	}
	p.mu.Unlock()

	if tracked {
		p.wg.Done()
	}
}
