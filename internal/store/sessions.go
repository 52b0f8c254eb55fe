package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/calagent/memory"
)

var ErrSessionNotFound = errors.New("session not found")

// lastMessagePreview caps the preview stored on a session row.
const lastMessagePreview = 120

// Session groups the messages of one conversation.
type Session struct {
	ID          string
	UserID      string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastMessage string
}

func (s *Store) CreateSession(ctx context.Context, userID, title string) (Session, error) {
	now := s.now().UTC()
	sess := Session{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, title, created_ns, updated_ns) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Title, toNS(now), toNS(now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

const sessionColumns = `id, user_id, title, created_ns, updated_ns, last_message`

func scanSession(sc scanner) (Session, error) {
	var (
		sess               Session
		createdNS, updated int64
	)
	if err := sc.Scan(&sess.ID, &sess.UserID, &sess.Title, &createdNS, &updated, &sess.LastMessage); err != nil {
		return Session{}, err
	}
	sess.CreatedAt, sess.UpdatedAt = fromNS(createdNS), fromNS(updated)
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return sess, err
}

// ListSessions returns a user's sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY updated_ns DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	out := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AppendTurn stores a turn under sessionID and bumps the session's activity.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, t memory.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_ns = ?, last_message = ? WHERE id = ?`,
		toNS(t.Timestamp), preview(t.Content), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, ts_ns) VALUES (?, ?, ?, ?)`,
		sessionID, string(t.Role), t.Content, toNS(t.Timestamp),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

// Turns returns every turn of a session in insertion order. Timestamps are
// informational; a clock step never reorders a transcript.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return s.queryTurns(ctx,
		`SELECT role, content, ts_ns FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
}

// RecentTurns returns the last limit turns of a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return []memory.Turn{}, nil
	}
	turns, err := s.queryTurns(ctx,
		`SELECT role, content, ts_ns FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) queryTurns(ctx context.Context, q string, args ...any) ([]memory.Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	out := []memory.Turn{}
	for rows.Next() {
		var (
			t    memory.Turn
			role string
			ns   int64
		)
		if err := rows.Scan(&role, &t.Content, &ns); err != nil {
			return nil, err
		}
		t.Role = memory.Role(role)
		t.Timestamp = fromNS(ns)
		out = append(out, t)
	}
	return out, rows.Err()
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= lastMessagePreview {
		return s
	}
	return string(r[:lastMessagePreview])
}
