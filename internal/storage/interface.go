package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/calgrid/internal/models"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateEvent = errors.New("event already exists")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrNotInitialized = errors.New("storage not initialized, run 'calgrid init' first")
)

// Provider persists events. Deleted events are kept with a deletion timestamp and
// can be restored.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Events
	AddEvent(models.Event) (models.Event, error)
	GetEvent(id string) (models.Event, error)
	GetAllEvents() ([]models.Event, error)
	GetEventsInRange(from, to time.Time) ([]models.Event, error)
	UpdateEvent(id string, patch models.EventPatch) (models.Event, error)
	DeleteEvent(id string) error
	RestoreEvent(id string) error
	ReplaceAllEvents([]models.Event) error

	// Metadata
	GetConfigPath() string
	SchemaVersion() (int, error)
}

// NormalizeEvent applies the canonical form every backend stores: trimmed title,
// lowercase color and minute precision.
func NormalizeEvent(e models.Event) models.Event {
	e.Title = strings.TrimSpace(e.Title)
	e.Color = strings.ToLower(strings.TrimSpace(e.Color))
	e.Start = e.Start.Truncate(time.Minute)
	e.End = e.End.Truncate(time.Minute)
	return e
}

// CheckEvent rejects events a backend must not store.
func CheckEvent(e models.Event) error {
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidEvent)
	}
	return nil
}
