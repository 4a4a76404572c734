package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"shifts-bot/internal/models"
)

//go:embed schema.sql
var ddl string

// DB keeps chat sessions in SQLite.
type DB struct{ *sql.DB }

func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// Load returns the stored session, or a fresh idle one for a new chat.
func (d *DB) Load(ctx context.Context, chatID int64) (*models.Session, error) {
	var (
		token, arg, pending string
		page                int
		updated             int64
	)
	err := d.QueryRowContext(ctx, `
        SELECT waiting_for, waiting_arg, pending, tz_page, updated_at
        FROM sessions WHERE chat_id=?`, chatID,
	).Scan(&token, &arg, &pending, &page, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSession(chatID), nil
	}
	if err != nil {
		return nil, err
	}

	s := models.NewSession(chatID)
	s.Waiting = models.ParseAwaiting(token, arg)
	s.TimezonePage = page
	s.UpdatedAt = time.Unix(updated, 0)
	if err := json.Unmarshal([]byte(pending), &s.Pending); err != nil {
		return nil, fmt.Errorf("session %d pending: %w", chatID, err)
	}
	if s.Pending == nil {
		s.Pending = map[models.ShiftID]models.PendingShift{}
	}
	return s, nil
}

func (d *DB) Save(ctx context.Context, s *models.Session) error {
	pending, err := json.Marshal(s.Pending)
	if err != nil {
		return err
	}
	var token, arg string
	if s.Waiting != nil {
		token, arg = s.Waiting.Token(), models.AwaitingArg(s.Waiting)
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = d.ExecContext(ctx, `
        INSERT INTO sessions (chat_id, waiting_for, waiting_arg, pending, tz_page, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT(chat_id) DO UPDATE SET waiting_for=excluded.waiting_for,
            waiting_arg=excluded.waiting_arg,
            pending=excluded.pending,
            tz_page=excluded.tz_page,
            updated_at=excluded.updated_at
    `, s.ChatID, token, arg, string(pending), s.TimezonePage, updated.Unix())
	return err
}

// DeleteIdle removes sessions not touched since before and reports how many
// were dropped.
func (d *DB) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
