package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grocery-planner/internal/database"
	"grocery-planner/internal/grocery"
)

var testNow = time.Date(2024, 5, 8, 10, 30, 0, 0, time.UTC)

func newFileStore(t *testing.T) (*UserStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "all_users_data.json")
	backend, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	return NewUserStore(backend, nil), path
}

func TestUserStoreFile(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingFileStartsEmpty", func(t *testing.T) {
		store, path := newFileStore(t)
		warnings, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("Expected no warnings, got %v", warnings)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Expected empty document to be written: %v", err)
		}
		if strings.TrimSpace(string(data)) != "{}" {
			t.Errorf("Expected {}, got %s", data)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		store, path := newFileStore(t)
		if _, err := store.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		err := store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
			if _, err := r.AddProduct("Milk", "Dairy", "L"); err != nil {
				return err
			}
			if err := r.Select("Milk", 2, testNow); err != nil {
				return err
			}
			r.Commit(testNow)
			return nil
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		backend, _ := NewFileBackend(path)
		reloaded := NewUserStore(backend, nil)
		if _, err := reloaded.Load(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
		rec, err := reloaded.GetOrCreate(ctx, "ana@example.com")
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if rec.MasterList["Milk"].Unit != "L" {
			t.Errorf("Expected Milk in L, got %+v", rec.MasterList["Milk"])
		}
		if rec.Current["Milk"].Quantity != 2 {
			t.Errorf("Expected live quantity 2, got %v", rec.Current["Milk"].Quantity)
		}
		if len(rec.History) != 1 {
			t.Errorf("Expected 1 history record, got %d", len(rec.History))
		}
	})

	t.Run("CorruptFileIsReset", func(t *testing.T) {
		store, path := newFileStore(t)
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		warnings, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Expected corrupt file to be recovered, got %v", err)
		}
		if len(warnings) != 1 || !strings.Contains(warnings[0], ErrStorageCorrupt.Error()) {
			t.Errorf("Expected a corruption warning, got %v", warnings)
		}
		if len(store.Emails()) != 0 {
			t.Errorf("Expected empty store, got %v", store.Emails())
		}
	})

	t.Run("LegacyFile", func(t *testing.T) {
		store, path := newFileStore(t)
		legacy := `{"ana@example.com": {
			"master_list": {"Milk": {"category": "Dairy", "quantity_type": "litros"}},
			"weekly_selections": {"Milk": {"quantity": "3", "category": "Dairy", "quantity_type": "litros"}}
		}, "ghost@example.com": null}`
		if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		rec, _ := store.GetOrCreate(ctx, "ana@example.com")
		if rec.MasterList["Milk"].Unit != "litros" {
			t.Errorf("Expected legacy unit, got %+v", rec.MasterList["Milk"])
		}
		if rec.Current["Milk"].Quantity != 3 {
			t.Errorf("Expected legacy live quantity 3, got %v", rec.Current["Milk"].Quantity)
		}
		ghost, _ := store.GetOrCreate(ctx, "ghost@example.com")
		if ghost.MasterList == nil {
			t.Error("Expected null record to be replaced with an empty one")
		}
	})

	t.Run("ViewDoesNotCreateRecord", func(t *testing.T) {
		store, path := newFileStore(t)
		if _, err := store.Load(ctx); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		err := store.View(ctx, "typo@example.com", func(r *grocery.UserRecord) error {
			if len(r.MasterList) != 0 {
				t.Errorf("Expected empty record, got %+v", r.MasterList)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View failed: %v", err)
		}
		if emails := store.Emails(); len(emails) != 0 {
			t.Errorf("Expected no users after View, got %v", emails)
		}
		data, _ := os.ReadFile(path)
		if strings.Contains(string(data), "typo@example.com") {
			t.Errorf("Expected View not to persist a record, got %s", data)
		}
	})

	t.Run("ReadDocumentDoesNotWrite", func(t *testing.T) {
		_, path := newFileStore(t)
		backend, _ := NewFileBackend(path)
		if _, err := ReadDocument(ctx, backend); !errors.Is(err, ErrNoDocument) {
			t.Errorf("Expected ErrNoDocument, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected no file to be created, got %v", err)
		}

		if err := os.WriteFile(path, []byte("[1,2"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadDocument(ctx, backend); !errors.Is(err, ErrStorageCorrupt) {
			t.Errorf("Expected ErrStorageCorrupt, got %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "[1,2" {
			t.Errorf("Expected corrupt file to be left alone, got %q", data)
		}
	})

	t.Run("AtomicWriteLeavesNoTempFiles", func(t *testing.T) {
		store, path := newFileStore(t)
		if _, err := store.Load(ctx); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 5; i++ {
			err := store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
				_, err := r.AddProduct("Item"+string(rune('A'+i)), "", "")
				return err
			})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
		}
		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != filepath.Base(path) {
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("Expected only the data file, got %v", names)
		}
	})

	t.Run("FailedUpdateKeepsRecord", func(t *testing.T) {
		store, _ := newFileStore(t)
		if _, err := store.Load(ctx); err != nil {
			t.Fatal(err)
		}
		_ = store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
			_, err := r.AddProduct("Milk", "Dairy", "L")
			return err
		})
		err := store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
			r.ClearMasterList()
			return grocery.ErrUnknownProduct
		})
		if !errors.Is(err, grocery.ErrUnknownProduct) {
			t.Fatalf("Expected fn error to be returned, got %v", err)
		}
		rec, _ := store.GetOrCreate(ctx, "ana@example.com")
		if _, ok := rec.MasterList["Milk"]; !ok {
			t.Error("Expected Milk to survive a failed update")
		}
	})
}

type failingBackend struct {
	writes int
}

func (f *failingBackend) ReadDocument(context.Context) ([]byte, error) { return nil, ErrNoDocument }

func (f *failingBackend) WriteDocument(context.Context, []byte) error {
	f.writes++
	if f.writes > 1 {
		return errors.New("disk full")
	}
	return nil
}

func TestUserStoreSaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(&failingBackend{}, nil)
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
		_, err := r.AddProduct("Milk", "Dairy", "L")
		return err
	})
	if err == nil {
		t.Fatal("Expected save error, got nil")
	}
	if len(store.Emails()) != 0 {
		t.Errorf("Expected new record to be discarded, got %v", store.Emails())
	}
}

func TestUserStoreSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "grocery.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	backend := NewSQLiteBackend(db.SQL)
	if _, err := backend.ReadDocument(ctx); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Expected ErrNoDocument on a fresh database, got %v", err)
	}

	store := NewUserStore(backend, nil)
	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err = store.Update(ctx, "ana@example.com", func(r *grocery.UserRecord) error {
		_, err := r.AddProduct("Bread", "Bakery", "units")
		return err
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded := NewUserStore(NewSQLiteBackend(db.SQL), nil)
	if _, err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	snap := reloaded.Snapshot()
	if _, ok := snap["ana@example.com"].MasterList["Bread"]; !ok {
		t.Errorf("Expected Bread after reload, got %+v", snap)
	}

	t.Run("Replace", func(t *testing.T) {
		doc := Document{"bo@example.com": grocery.NewUserRecord()}
		if err := reloaded.Replace(ctx, doc); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if got := reloaded.Emails(); len(got) != 1 || got[0] != "bo@example.com" {
			t.Errorf("Expected only bo@example.com, got %v", got)
		}
	})
}
