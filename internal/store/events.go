package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/calagent/calendar"
)

var _ calendar.Store = (*Store)(nil)

const eventColumns = `id, summary, description, location, start_ns, end_ns, attendees, created_ns, updated_ns`

func (s *Store) CreateEvent(ctx context.Context, e calendar.Event) error {
	att, err := encodeAttendees(e.Attendees)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Summary, e.Description, e.Location, toNS(e.Start), toNS(e.End), att, toNS(e.CreatedAt), toNS(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (calendar.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return calendar.Event{}, calendar.ErrEventNotFound
	}
	return e, err
}

func (s *Store) UpdateEvent(ctx context.Context, e calendar.Event) error {
	att, err := encodeAttendees(e.Attendees)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET summary = ?, description = ?, location = ?, start_ns = ?, end_ns = ?, attendees = ?, updated_ns = ? WHERE id = ?`,
		e.Summary, e.Description, e.Location, toNS(e.Start), toNS(e.End), att, toNS(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireOneRow(res)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireOneRow(res)
}

// ListEvents returns events overlapping [min, max) ordered by start.
func (s *Store) ListEvents(ctx context.Context, min, max time.Time) ([]calendar.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE start_ns < ? AND end_ns > ? ORDER BY start_ns, id`,
		toNS(max), toNS(min),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []calendar.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (calendar.Event, error) {
	var (
		e                                  calendar.Event
		startNS, endNS, createdNS, updated int64
		att                                string
	)
	if err := sc.Scan(&e.ID, &e.Summary, &e.Description, &e.Location, &startNS, &endNS, &att, &createdNS, &updated); err != nil {
		return calendar.Event{}, err
	}
	if err := json.Unmarshal([]byte(att), &e.Attendees); err != nil {
		return calendar.Event{}, fmt.Errorf("decode attendees for %s: %w", e.ID, err)
	}
	if len(e.Attendees) == 0 {
		e.Attendees = nil
	}
	e.Start, e.End = fromNS(startNS), fromNS(endNS)
	e.CreatedAt, e.UpdatedAt = fromNS(createdNS), fromNS(updated)
	return e, nil
}

func encodeAttendees(a []string) (string, error) {
	if a == nil {
		a = []string{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return calendar.ErrEventNotFound
	}
	return nil
}
