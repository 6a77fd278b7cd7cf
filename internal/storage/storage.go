package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"grocery-planner/internal/grocery"
	"grocery-planner/internal/logger"
)

// ErrStorageCorrupt marks a stored document that could not be decoded.
var ErrStorageCorrupt = errors.New("storage corrupt")

// Document is the persisted shape: one record per user email.
type Document map[string]*grocery.UserRecord

// UserStore holds every user's record in memory and writes the whole document through a Backend
// after each change. All access is serialized.
type UserStore struct {
	mu      sync.Mutex
	backend Backend
	log     logger.Logger
	doc     Document
}

// NewUserStore creates an empty store. Call Load before serving requests.
func NewUserStore(backend Backend, log logger.Logger) *UserStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &UserStore{backend: backend, log: log, doc: Document{}}
}

// Load reads the document from the backend. A missing or corrupt document is replaced by an empty
// one and written back; corruption is reported in the returned warnings rather than as an error.
func (s *UserStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []string
	data, err := s.backend.ReadDocument(ctx)
	switch {
	case errors.Is(err, ErrNoDocument):
		s.doc = Document{}
		return nil, s.saveLocked(ctx)
	case err != nil:
		return nil, fmt.Errorf("failed to load user data: %w", err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		s.log.Warn("Stored user data is corrupt, starting empty", zap.Error(err))
		warnings = append(warnings, err.Error())
		s.doc = Document{}
		return warnings, s.saveLocked(ctx)
	}
	s.doc = doc
	return warnings, nil
}

// ReadDocument decodes the backend's document without writing anything back. It returns
// ErrNoDocument when nothing is stored and ErrStorageCorrupt when the data cannot be decoded.
func ReadDocument(ctx context.Context, backend Backend) (Document, error) {
	data, err := backend.ReadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	for email, rec := range doc {
		if rec == nil {
			doc[email] = grocery.NewUserRecord()
		}
	}
	return doc, nil
}

// Save writes the whole document to the backend.
func (s *UserStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *UserStore) saveLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user data: %w", err)
	}
	if err := s.backend.WriteDocument(ctx, data); err != nil {
		return fmt.Errorf("failed to save user data: %w", err)
	}
	return nil
}

// ensureLocked returns the record for email and whether it was created.
func (s *UserStore) ensureLocked(email string) (*grocery.UserRecord, bool) {
	rec, ok := s.doc[email]
	if ok {
		return rec, false
	}
	rec = grocery.NewUserRecord()
	s.doc[email] = rec
	return rec, true
}

// GetOrCreate returns a copy of the user's record, creating and persisting an empty one if needed.
func (s *UserStore) GetOrCreate(ctx context.Context, email string) (*grocery.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, created := s.ensureLocked(email)
	if created {
		if err := s.saveLocked(ctx); err != nil {
			delete(s.doc, email)
			return nil, err
		}
	}
	return rec.Clone(), nil
}

// View runs fn against a copy of the user's record. An unknown user sees an empty record
// and nothing is persisted.
func (s *UserStore) View(_ context.Context, email string, fn func(*grocery.UserRecord) error) error {
	s.mu.Lock()
	rec, ok := s.doc[email]
	if ok {
		rec = rec.Clone()
	} else {
		rec = grocery.NewUserRecord()
	}
	s.mu.Unlock()
	return fn(rec)
}

// Update runs fn against a working copy of the user's record and persists it when fn succeeds.
// If fn or the save fails the stored record is left as it was.
func (s *UserStore) Update(ctx context.Context, email string, fn func(*grocery.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.doc[email]
	working := grocery.NewUserRecord()
	if existed {
		working = prev.Clone()
	}
	if err := fn(working); err != nil {
		return err
	}

	s.doc[email] = working
	if err := s.saveLocked(ctx); err != nil {
		if existed {
			s.doc[email] = prev
		} else {
			delete(s.doc, email)
		}
		return err
	}
	return nil
}

// Emails lists the users in the store, sorted.
func (s *UserStore) Emails() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make([]string, 0, len(s.doc))
	for email := range s.doc {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

// Snapshot returns a deep copy of the whole document.
func (s *UserStore) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Document, len(s.doc))
	for email, rec := range s.doc {
		out[email] = rec.Clone()
	}
	return out
}

// Replace swaps in a new document and persists it.
func (s *UserStore) Replace(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc
	s.doc = make(Document, len(doc))
	for email, rec := range doc {
		if rec == nil {
			rec = grocery.NewUserRecord()
		}
		s.doc[email] = rec.Clone()
	}
	if err := s.saveLocked(ctx); err != nil {
		s.doc = prev
		return err
	}
	return nil
}
