package grocery

import (
	"context"
	"time"

	"grocery-planner/internal/logger"

	"go.uber.org/zap"
)

// Repository gives serialized access to a user's record.
// Update persists the whole store after fn succeeds and discards changes when it fails.
type Repository interface {
	View(ctx context.Context, email string, fn func(*UserRecord) error) error
	Update(ctx context.Context, email string, fn func(*UserRecord) error) error
}

// ActionRecorder receives one entry per successful mutation.
type ActionRecorder interface {
	RecordAction(ctx context.Context, action, email string, latency time.Duration) error
}

// Service exposes master list, weekly selection and history operations for a user.
type Service struct {
	repo     Repository
	recorder ActionRecorder
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records every successful mutation.
func WithRecorder(r ActionRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		log:  logger.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) update(ctx context.Context, action, email string, fn func(*UserRecord) error) error {
	start := time.Now()
	if err := s.repo.Update(ctx, email, fn); err != nil {
		return err
	}
	if s.recorder != nil {
		if err := s.recorder.RecordAction(ctx, action, email, time.Since(start)); err != nil {
			s.log.Warn("failed to record action", zap.String("action", action), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) view(ctx context.Context, email string, fn func(*UserRecord) error) error {
	return s.repo.View(ctx, email, fn)
}

// Register creates and persists an empty record for a user seen for the first time.
func (s *Service) Register(ctx context.Context, email string) error {
	return s.repo.Update(ctx, email, func(*UserRecord) error { return nil })
}

// Record returns a copy of the user's full record. Unknown users get an empty record.
func (s *Service) Record(ctx context.Context, email string) (*UserRecord, error) {
	var out *UserRecord
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.Clone()
		return nil
	})
	return out, err
}

// --- Master list ---

// AddProduct adds a product to the master list and returns its stored name.
func (s *Service) AddProduct(ctx context.Context, email, name, category, unit string) (string, error) {
	var stored string
	err := s.update(ctx, "add_product", email, func(r *UserRecord) error {
		var err error
		stored, err = r.AddProduct(name, category, unit)
		return err
	})
	return stored, err
}

// RenameOrRecategorize updates a product and returns its (possibly new) name.
func (s *Service) RenameOrRecategorize(ctx context.Context, email, oldName, newName, newCategory, newUnit string) (string, error) {
	var stored string
	err := s.update(ctx, "update_product", email, func(r *UserRecord) error {
		var err error
		stored, err = r.RenameOrRecategorize(oldName, newName, newCategory, newUnit)
		return err
	})
	return stored, err
}

// DeleteProduct removes a product from the master list and the live selection.
func (s *Service) DeleteProduct(ctx context.Context, email, name string) error {
	return s.update(ctx, "delete_product", email, func(r *UserRecord) error {
		return r.DeleteProduct(name)
	})
}

// DeleteProducts removes several products at once and returns the removed names.
func (s *Service) DeleteProducts(ctx context.Context, email string, names []string) ([]string, error) {
	var removed []string
	err := s.update(ctx, "delete_products", email, func(r *UserRecord) error {
		removed = r.DeleteProducts(names)
		return nil
	})
	return removed, err
}

// ClearMasterList removes every product and empties the live selection.
func (s *Service) ClearMasterList(ctx context.Context, email string) error {
	return s.update(ctx, "clear_master_list", email, func(r *UserRecord) error {
		r.ClearMasterList()
		return nil
	})
}

// MasterList returns a copy of the user's master list.
func (s *Service) MasterList(ctx context.Context, email string) (MasterList, error) {
	var out MasterList
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.MasterList.Clone()
		return nil
	})
	return out, err
}

// ListCategories returns the sorted distinct categories.
func (s *Service) ListCategories(ctx context.Context, email string) ([]string, error) {
	var out []string
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.Categories()
		return nil
	})
	return out, err
}

// FilterByCategory returns sorted product names, optionally limited to one category.
func (s *Service) FilterByCategory(ctx context.Context, email, category string) ([]string, error) {
	var out []string
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.FilterByCategory(category)
		return nil
	})
	return out, err
}

// --- Weekly selection ---

// Select adds quantity to a product in the live selection.
func (s *Service) Select(ctx context.Context, email, name string, quantity Quantity) error {
	return s.update(ctx, "select", email, func(r *UserRecord) error {
		return r.Select(name, quantity, s.now())
	})
}

// SetQuantity overwrites the quantity of a selected product.
func (s *Service) SetQuantity(ctx context.Context, email, name string, quantity Quantity) error {
	return s.update(ctx, "set_quantity", email, func(r *UserRecord) error {
		return r.SetQuantity(name, quantity, s.now())
	})
}

// Deselect removes a product from the live selection.
func (s *Service) Deselect(ctx context.Context, email, name string) (bool, error) {
	var removed bool
	err := s.update(ctx, "deselect", email, func(r *UserRecord) error {
		removed = r.Deselect(name, s.now())
		return nil
	})
	return removed, err
}

// ClearAll empties the live selection.
func (s *Service) ClearAll(ctx context.Context, email string) error {
	return s.update(ctx, "clear_selection", email, func(r *UserRecord) error {
		r.ClearSelection(s.now())
		return nil
	})
}

// Reconcile applies a submitted selection form in one save.
func (s *Service) Reconcile(ctx context.Context, email string, rows []SelectionRow) error {
	return s.update(ctx, "reconcile", email, func(r *UserRecord) error {
		return r.Reconcile(rows, s.now())
	})
}

// Selection returns a copy of the live selection.
func (s *Service) Selection(ctx context.Context, email string) (Selection, error) {
	var out Selection
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.Current.Clone()
		return nil
	})
	return out, err
}

// Commit snapshots the live selection into history.
func (s *Service) Commit(ctx context.Context, email string) (string, HistoryRecord, error) {
	var (
		key string
		rec HistoryRecord
	)
	err := s.update(ctx, "commit", email, func(r *UserRecord) error {
		key, rec = r.Commit(s.now())
		return nil
	})
	return key, rec, err
}

// Recommend returns up to n unselected products.
func (s *Service) Recommend(ctx context.Context, email string, n int) ([]string, error) {
	var out []string
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = r.Recommend(n)
		return nil
	})
	return out, err
}

// ExportCurrent renders the live selection as text.
func (s *Service) ExportCurrent(ctx context.Context, email string) (string, error) {
	sel, err := s.Selection(ctx, email)
	if err != nil {
		return "", err
	}
	return Export(sel), nil
}

// --- History ---

// HistoryEntry pairs a history record with its key.
type HistoryEntry struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	WeekOf    string    `json:"week_of,omitempty"`
	Products  Selection `json:"products"`
}

// ListHistory returns the user's history, newest first.
func (s *Service) ListHistory(ctx context.Context, email string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := s.view(ctx, email, func(r *UserRecord) error {
		out = make([]HistoryEntry, 0, len(r.History))
		for _, k := range r.HistoryKeys() {
			rec := r.History[k].Clone()
			out = append(out, HistoryEntry{Key: k, Timestamp: rec.Timestamp, WeekOf: rec.WeekOf, Products: rec.Products})
		}
		return nil
	})
	return out, err
}

// GetHistory returns one history record.
func (s *Service) GetHistory(ctx context.Context, email, key string) (HistoryRecord, error) {
	var out HistoryRecord
	err := s.view(ctx, email, func(r *UserRecord) error {
		rec, ok := r.History[key]
		if !ok {
			return ErrUnknownHistory
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

// Reuse replaces the live selection with a copy of a history record.
func (s *Service) Reuse(ctx context.Context, email, key string) error {
	return s.update(ctx, "reuse_history", email, func(r *UserRecord) error {
		return r.Reuse(key, s.now())
	})
}

// DeleteHistory removes a history record.
func (s *Service) DeleteHistory(ctx context.Context, email, key string) error {
	return s.update(ctx, "delete_history", email, func(r *UserRecord) error {
		return r.DeleteHistory(key)
	})
}

// ExportHistory renders a history record as text.
func (s *Service) ExportHistory(ctx context.Context, email, key string) (string, error) {
	rec, err := s.GetHistory(ctx, email, key)
	if err != nil {
		return "", err
	}
	return Export(rec.Products), nil
}
