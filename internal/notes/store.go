package notes

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is how timestamps are stored.
const timeLayout = time.RFC3339Nano

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store persists notes in SQLite. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	now      func() time.Time
	revision atomic.Uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (and creates if needed) the database at dsn.
func Open(ctx context.Context, dsn string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// SQLite serializes writers; one connection also keeps a ":memory:"
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "notes"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Revision changes whenever a note is created, updated or deleted.
func (s *Store) Revision() uint64 {
	return s.revision.Load()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new note.
func (s *Store) Create(ctx context.Context, in Create) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	created := s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (title, content, created_at) VALUES (?, ?, ?)",
		in.Title, in.Content, created.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	s.revision.Add(1)

	s.logger.Info("note created", "id", id, "title", in.Title)
	return &Note{
		ID:        id,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: created,
		Versions:  []Version{},
	}, nil
}

// Get returns a note with its versions.
func (s *Store) Get(ctx context.Context, id int64) (*Note, error) {
	n, err := s.getNote(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.History(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Versions = versions
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getNote(ctx context.Context, q queryer, id int64) (*Note, error) {
	var (
		n       Note
		created string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, title, content, created_at FROM notes WHERE id = ?", id,
	).Scan(&n.ID, &n.Title, &n.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}
	if n.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("note %d created_at: %w", id, err)
	}
	n.Versions = []Version{}
	return &n, nil
}

// List returns all notes in id order, each with its versions.
func (s *Store) List(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, content, created_at FROM notes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			n       Note
			created string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if n.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("note %d created_at: %w", n.ID, err)
		}
		n.Versions = []Version{}
		index[n.ID] = len(notes)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	rows.Close()

	versions, err := s.queryVersions(ctx,
		"SELECT id, note_id, content, created_at FROM note_versions ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if i, ok := index[v.NoteID]; ok {
			notes[i].Versions = append(notes[i].Versions, v)
		}
	}
	return notes, nil
}

// Update applies the set fields of in. The previous content is kept as
// a Version. An empty update returns the note unchanged.
func (s *Store) Update(ctx context.Context, id int64, in Update) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Empty() {
		return s.Get(ctx, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	n, err := s.getNote(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO note_versions (note_id, content, created_at) VALUES (?, ?, ?)",
		id, n.Content, s.now().Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ? WHERE id = ?",
		n.Title, n.Content, id,
	); err != nil {
		return nil, fmt.Errorf("update note %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	s.revision.Add(1)

	s.logger.Info("note updated", "id", id)
	return s.Get(ctx, id)
}

// Delete removes a note and its versions.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM note_versions WHERE note_id = ?", id); err != nil {
		return fmt.Errorf("delete versions of %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	} else if n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	s.revision.Add(1)

	s.logger.Info("note deleted", "id", id)
	return nil
}

// History returns the versions of a note, newest first. A note without
// updates (or a missing note) has no versions.
func (s *Store) History(ctx context.Context, id int64) ([]Version, error) {
	return s.queryVersions(ctx,
		"SELECT id, note_id, content, created_at FROM note_versions WHERE note_id = ? ORDER BY created_at DESC, id DESC",
		id)
}

func (s *Store) queryVersions(ctx context.Context, query string, args ...any) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		var (
			v       Version
			created string
		)
		if err := rows.Scan(&v.ID, &v.NoteID, &v.Content, &created); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if v.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("version %d created_at: %w", v.ID, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
