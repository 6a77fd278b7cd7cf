package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoDocument is returned by a Backend that has never been written.
var ErrNoDocument = errors.New("no stored document")

// Backend persists the whole user document as one opaque blob.
type Backend interface {
	ReadDocument(ctx context.Context) ([]byte, error)
	WriteDocument(ctx context.Context, data []byte) error
}

// FileBackend keeps the document in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a FileBackend and ensures the parent directory exists.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", filepath.Dir(path), err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the file the backend writes to.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) ReadDocument(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return data, nil
}

// WriteDocument replaces the file atomically: readers see either the old or the new document.
func (b *FileBackend) WriteDocument(_ context.Context, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

const documentName = "all_users_data"

// SQLiteBackend stores the document as a single row of the documents table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend expects a database whose migrations have already run.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) ReadDocument(ctx context.Context) ([]byte, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE name = ?`, documentName).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return []byte(data), nil
}

func (b *SQLiteBackend) WriteDocument(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO documents (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		documentName, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
