package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/storage"
)

const eventColumns = `id, title, start_at, end_at, color`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.Title, &e.Start, &e.End, &e.Color); err != nil {
		return models.Event{}, err
	}
	e.Start = e.Start.Local()
	e.End = e.End.Local()
	return e, nil
}

func (s *Store) AddEvent(e models.Event) (models.Event, error) {
	e = storage.NormalizeEvent(e)
	if err := storage.CheckEvent(e); err != nil {
		return models.Event{}, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	res, err := s.db.Exec(`
		INSERT INTO events (id, title, start_at, end_at, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Title, e.Start, e.End, e.Color)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Event{}, err
	} else if n == 0 {
		return models.Event{}, fmt.Errorf("%w: %s", storage.ErrDuplicateEvent, e.ID)
	}
	return e, nil
}

func (s *Store) GetEvent(id string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("%w: %s", storage.ErrEventNotFound, id)
	}
	return e, err
}

func (s *Store) GetAllEvents() ([]models.Event, error) {
	return s.queryEvents(`SELECT ` + eventColumns + ` FROM events WHERE deleted_at IS NULL ORDER BY start_at, id`)
}

// GetEventsInRange returns events starting in [from, to).
func (s *Store) GetEventsInRange(from, to time.Time) ([]models.Event, error) {
	return s.queryEvents(`
		SELECT `+eventColumns+` FROM events
		WHERE deleted_at IS NULL AND start_at >= $1 AND start_at < $2
		ORDER BY start_at, id`, from, to)
}

func (s *Store) queryEvents(query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) UpdateEvent(id string, patch models.EventPatch) (models.Event, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return models.Event{}, err
	}
	defer tx.Rollback()

	current, err := scanEvent(tx.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, fmt.Errorf("%w: %s", storage.ErrEventNotFound, id)
	}
	if err != nil {
		return models.Event{}, err
	}

	updated := storage.NormalizeEvent(patch.Apply(current))
	if err := storage.CheckEvent(updated); err != nil {
		return models.Event{}, err
	}

	_, err = tx.Exec(`
		UPDATE events SET title = $1, start_at = $2, end_at = $3, color = $4, updated_at = now()
		WHERE id = $5`,
		updated.Title, updated.Start, updated.End, updated.Color, id)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	return updated, tx.Commit()
}

func (s *Store) DeleteEvent(id string) error {
	res, err := s.db.Exec(`UPDATE events SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *Store) RestoreEvent(id string) error {
	res, err := s.db.Exec(`UPDATE events SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ReplaceAllEvents soft-deletes every live event and upserts events in one transaction.
func (s *Store) ReplaceAllEvents(events []models.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE events SET deleted_at = now() WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO events (id, title, start_at, end_at, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			color = EXCLUDED.color,
			updated_at = now(),
			deleted_at = NULL`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		e = storage.NormalizeEvent(e)
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if err := storage.CheckEvent(e); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
		if _, err := stmt.Exec(e.ID, e.Title, e.Start, e.End, e.Color); err != nil {
			return fmt.Errorf("failed to write event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrEventNotFound, id)
	}
	return nil
}
