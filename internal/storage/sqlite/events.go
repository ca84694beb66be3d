package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/storage"
)

// Times are stored as UTC RFC 3339 text so that lexical order matches time order.
const timeLayout = time.RFC3339

const eventColumns = `id, title, start_at, end_at, color`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var e models.Event
	var start, end string
	if err := row.Scan(&e.ID, &e.Title, &start, &end, &e.Color); err != nil {
		return models.Event{}, err
	}
	var err error
	if e.Start, err = parseTime(start); err != nil {
		return models.Event{}, fmt.Errorf("event %s: bad start_at: %w", e.ID, err)
	}
	if e.End, err = parseTime(end); err != nil {
		return models.Event{}, fmt.Errorf("event %s: bad end_at: %w", e.ID, err)
	}
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

	tx, err := s.db.Begin()
	if err != nil {
		return models.Event{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM events WHERE id = ?`, e.ID).Scan(&exists)
	if err != nil {
		return models.Event{}, err
	}
	if exists > 0 {
		return models.Event{}, fmt.Errorf("%w: %s", storage.ErrDuplicateEvent, e.ID)
	}

	now := formatTime(time.Now())
	_, err = tx.Exec(`
		INSERT INTO events (id, title, start_at, end_at, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, formatTime(e.Start), formatTime(e.End), e.Color, now, now)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}

	return e, tx.Commit()
}

func (s *Store) GetEvent(id string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ? AND deleted_at IS NULL`, id)
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
		WHERE deleted_at IS NULL AND start_at >= ? AND start_at < ?
		ORDER BY start_at, id`, formatTime(from), formatTime(to))
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

	current, err := scanEvent(tx.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ? AND deleted_at IS NULL`, id))
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
		UPDATE events SET title = ?, start_at = ?, end_at = ?, color = ?, updated_at = ?
		WHERE id = ?`,
		updated.Title, formatTime(updated.Start), formatTime(updated.End), updated.Color, formatTime(time.Now()), id)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	return updated, tx.Commit()
}

func (s *Store) DeleteEvent(id string) error {
	res, err := s.db.Exec(`UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *Store) RestoreEvent(id string) error {
	res, err := s.db.Exec(`UPDATE events SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`, formatTime(time.Now()), id)
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

	now := formatTime(time.Now())
	if _, err := tx.Exec(`UPDATE events SET deleted_at = ? WHERE deleted_at IS NULL`, now); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	for _, e := range events {
		e = storage.NormalizeEvent(e)
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if err := storage.CheckEvent(e); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
		_, err := tx.Exec(`
			INSERT INTO events (id, title, start_at, end_at, color, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				start_at = excluded.start_at,
				end_at = excluded.end_at,
				color = excluded.color,
				updated_at = excluded.updated_at,
				deleted_at = NULL`,
			e.ID, e.Title, formatTime(e.Start), formatTime(e.End), e.Color, now, now)
		if err != nil {
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
