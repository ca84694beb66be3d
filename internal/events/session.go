package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
)

// Mode selects how a mutation kind is carried out.
type Mode int

const (
	// ModeSync mutates local state only and fires the matching side-effect callback.
	ModeSync Mode = iota
	// ModeAsync goes through the engine with the configured remote operation.
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

// RemoteOps holds the remote operations. A nil field puts that kind in sync mode.
type RemoteOps struct {
	Add    AddFunc
	Update UpdateFunc
	Delete DeleteFunc
}

// SyncCallbacks are fire-and-forget side effects run after a sync mutation. Their
// failures cannot roll anything back.
type SyncCallbacks struct {
	OnAdd    func(models.Event)
	OnUpdate func(id string, patch models.EventPatch)
	OnDelete func(id string)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Initial []models.Event
	Remote  RemoteOps
	Sync    SyncCallbacks
	Options []Option
}

// Session owns one event store and routes every mutation according to the mode
// resolved for its kind at construction.
type Session struct {
	engine  *Engine
	remote  RemoteOps
	sync    SyncCallbacks
	modes   map[Kind]Mode
	changes chan struct{}
}

// NewSession builds a session over cfg.Initial.
func NewSession(cfg SessionConfig) (*Session, error) {
	store, err := NewStore(cfg.Initial)
	if err != nil {
		return nil, fmt.Errorf("failed to seed event store: %w", err)
	}

	s := &Session{
		remote:  cfg.Remote,
		sync:    cfg.Sync,
		changes: make(chan struct{}, 1),
		modes: map[Kind]Mode{
			KindAdd:    modeOf(cfg.Remote.Add != nil),
			KindUpdate: modeOf(cfg.Remote.Update != nil),
			KindDelete: modeOf(cfg.Remote.Delete != nil),
		},
	}

	opts := append([]Option{WithChangeNotifier(s.signal)}, cfg.Options...)
	s.engine = NewEngine(store, opts...)
	return s, nil
}

func modeOf(async bool) Mode {
	if async {
		return ModeAsync
	}
	return ModeSync
}

// Mode returns the mode resolved for kind.
func (s *Session) Mode(kind Kind) Mode {
	return s.modes[kind]
}

// Changes delivers a signal after the event collection changes. Signals coalesce.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Add creates an event using the mode resolved for adds.
func (s *Session) Add(ctx context.Context, e models.Event) bool {
	if s.modes[KindAdd] == ModeAsync {
		return s.engine.PerformAdd(ctx, e, s.remote.Add)
	}
	if _, err := s.AddSync(e); err != nil {
		s.engine.RecordError(KindAdd, e.ID, err, e)
		return false
	}
	return true
}

// Update patches an event using the mode resolved for updates.
func (s *Session) Update(ctx context.Context, id string, patch models.EventPatch) bool {
	if s.modes[KindUpdate] == ModeAsync {
		return s.engine.PerformUpdate(ctx, id, patch, s.remote.Update)
	}
	if _, err := s.UpdateSync(id, patch); err != nil {
		s.engine.RecordError(KindUpdate, id, err, patch)
		return false
	}
	return true
}

// Delete removes an event using the mode resolved for deletes. A sync delete of an
// unknown id is a no-op and still reports success.
func (s *Session) Delete(ctx context.Context, id string) bool {
	if s.modes[KindDelete] == ModeAsync {
		return s.engine.PerformDelete(ctx, id, s.remote.Delete)
	}
	s.DeleteSync(id)
	return true
}

// AddSync inserts e locally. An empty id is replaced with a new UUID.
func (s *Session) AddSync(e models.Event) (models.Event, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if err := s.engine.store.Add(e); err != nil {
		return models.Event{}, err
	}
	s.signal()
	if s.sync.OnAdd != nil {
		fire(KindAdd, func() { s.sync.OnAdd(e) })
	}
	return e, nil
}

// UpdateSync patches the event locally.
func (s *Session) UpdateSync(id string, patch models.EventPatch) (models.Event, error) {
	updated, err := s.engine.store.Update(id, patch)
	if err != nil {
		return models.Event{}, err
	}
	s.signal()
	if s.sync.OnUpdate != nil {
		fire(KindUpdate, func() { s.sync.OnUpdate(id, patch) })
	}
	return updated, nil
}

// DeleteSync removes the event locally and reports whether it existed. OnDelete
// fires only for an event that was removed.
func (s *Session) DeleteSync(id string) bool {
	_, ok := s.engine.store.Delete(id)
	if !ok {
		return false
	}
	s.signal()
	if s.sync.OnDelete != nil {
		fire(KindDelete, func() { s.sync.OnDelete(id) })
	}
	return true
}

// AddAsync runs an optimistic add against an explicit remote operation.
func (s *Session) AddAsync(ctx context.Context, e models.Event, remote AddFunc) bool {
	return s.engine.PerformAdd(ctx, e, remote)
}

// UpdateAsync runs an optimistic update against an explicit remote operation.
func (s *Session) UpdateAsync(ctx context.Context, id string, patch models.EventPatch, remote UpdateFunc) bool {
	return s.engine.PerformUpdate(ctx, id, patch, remote)
}

// DeleteAsync runs an optimistic delete against an explicit remote operation.
func (s *Session) DeleteAsync(ctx context.Context, id string, remote DeleteFunc) bool {
	return s.engine.PerformDelete(ctx, id, remote)
}

// ReplaceAll substitutes the whole collection, for external sync and clearing.
func (s *Session) ReplaceAll(events []models.Event) error {
	if err := s.engine.store.Replace(events); err != nil {
		return err
	}
	s.signal()
	return nil
}

// GetByID returns the event with the given id.
func (s *Session) GetByID(id string) (models.Event, bool) {
	return s.engine.store.Get(id)
}

// Events returns a copy of the current collection.
func (s *Session) Events() []models.Event {
	return s.engine.store.Events()
}

// Status returns in-flight markers and the last failure.
func (s *Session) Status() Status {
	return s.engine.Status()
}

// ClearError resets the last failure.
func (s *Session) ClearError() {
	s.engine.ClearError()
	s.signal()
}

func fire(kind Kind, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("Sync callback panicked", "kind", kind, "panic", r)
			}
		}()
		fn()
	}()
}
