package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("note not found")
	ErrConflict = errors.New("note slug already exists")
)

// Timestamps are stored as fixed-width UTC text so they compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type NoteStore struct {
	db     *sql.DB
	driver string
}

// NewNoteStore opens the database for driver ("sqlite3" or "mysql") and
// creates the schema if it does not exist.
func NewNoteStore(driver, dsn string) (*NoteStore, error) {
	if driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	store := &NoteStore{db: db, driver: driver}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *NoteStore) initSchema() error {
	var stmts []string
	switch s.driver {
	case "mysql":
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS notes (
			id VARCHAR(36) PRIMARY KEY,
			slug VARCHAR(191) NOT NULL UNIQUE,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			created_at VARCHAR(32) NOT NULL,
			updated_at VARCHAR(32) NOT NULL,
			INDEX idx_notes_created_at (created_at)
		)`}
	default:
		stmts = []string{`
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *NoteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *NoteStore) Close() error {
	return s.db.Close()
}

type NoteInput struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Note struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *NoteStore) Create(ctx context.Context, input NoteInput) (*Note, error) {
	now := time.Now().UTC().Format(timeLayout)
	note := &Note{
		ID:        uuid.New().String(),
		Slug:      input.Slug,
		Title:     input.Title,
		Body:      input.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO notes (id, slug, title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, note.ID, note.Slug, note.Title, note.Body, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	return note, nil
}

func (s *NoteStore) Get(ctx context.Context, id string) (*Note, error) {
	query := "SELECT id, slug, title, body, created_at, updated_at FROM notes WHERE id = ?"

	var n Note
	err := s.db.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.Slug, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}
	return &n, nil
}

type ListOptions struct {
	Limit  int
	Offset int
}

func (s *NoteStore) List(ctx context.Context, opts ListOptions) ([]Note, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT id, slug, title, body, created_at, updated_at FROM notes ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Slug, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

func (s *NoteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

func (s *NoteStore) Update(ctx context.Context, id string, input NoteInput) (*Note, error) {
	now := time.Now().UTC().Format(timeLayout)

	query := "UPDATE notes SET slug = ?, title = ?, body = ?, updated_at = ? WHERE id = ?"
	res, err := s.db.ExecContext(ctx, query, input.Slug, input.Title, input.Body, now, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, id)
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan deletes notes created before cutoff and returns how many were removed.
func (s *NoteStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE created_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
