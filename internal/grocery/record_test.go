package grocery

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2024, 5, 8, 10, 30, 0, 0, time.UTC) // a Wednesday

func newTestRecord(t *testing.T) *UserRecord {
	t.Helper()
	r := NewUserRecord()
	for _, p := range []struct{ name, category, unit string }{
		{"Milk", "Dairy", "L"},
		{"Bread", "Bakery", "units"},
		{"Apples", "Fruit", "kg"},
		{"Cheese", "Dairy", "g"},
	} {
		if _, err := r.AddProduct(p.name, p.category, p.unit); err != nil {
			t.Fatalf("Failed to add %s: %v", p.name, err)
		}
	}
	return r
}

func TestAddProduct(t *testing.T) {
	t.Run("TrimsAndDefaults", func(t *testing.T) {
		r := NewUserRecord()
		name, err := r.AddProduct("  Rice  ", "", "")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if name != "Rice" {
			t.Errorf("Expected trimmed name 'Rice', got '%s'", name)
		}
		got := r.MasterList["Rice"]
		if got.Category != DefaultCategory || got.Unit != DefaultUnit {
			t.Errorf("Expected defaults, got %+v", got)
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		r := NewUserRecord()
		if _, err := r.AddProduct("   ", "Dairy", "L"); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Expected ErrEmptyName, got %v", err)
		}
		if len(r.MasterList) != 0 {
			t.Errorf("Expected empty master list, got %v", r.MasterList)
		}
	})

	t.Run("DuplicateLeavesFirstEntry", func(t *testing.T) {
		r := newTestRecord(t)
		for _, dup := range []string{"Milk", "milk", " MILK "} {
			if _, err := r.AddProduct(dup, "Drinks", "bottles"); !errors.Is(err, ErrDuplicateProduct) {
				t.Errorf("Expected ErrDuplicateProduct for %q, got %v", dup, err)
			}
		}
		if got := r.MasterList["Milk"]; got != (Product{Category: "Dairy", Unit: "L"}) {
			t.Errorf("Expected first entry unchanged, got %+v", got)
		}
		if len(r.MasterList) != 4 {
			t.Errorf("Expected 4 products, got %d", len(r.MasterList))
		}
	})
}

func TestRenameOrRecategorize(t *testing.T) {
	t.Run("RenameMovesLiveSelectionButNotHistory", func(t *testing.T) {
		r := newTestRecord(t)
		if err := r.Select("Milk", 2, testNow); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		key, _ := r.Commit(testNow)

		name, err := r.RenameOrRecategorize("Milk", "Oat Milk", "Drinks", "")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if name != "Oat Milk" {
			t.Errorf("Expected new name 'Oat Milk', got '%s'", name)
		}
		if _, ok := r.MasterList["Milk"]; ok {
			t.Error("Expected old name to be gone from the master list")
		}
		if got := r.MasterList["Oat Milk"]; got != (Product{Category: "Drinks", Unit: "L"}) {
			t.Errorf("Unexpected renamed product %+v", got)
		}
		item, ok := r.Current["Oat Milk"]
		if !ok {
			t.Fatal("Expected live selection to follow the rename")
		}
		if item.Quantity != 2 || item.Category != "Drinks" {
			t.Errorf("Unexpected live item %+v", item)
		}
		if _, ok := r.History[key].Products["Milk"]; !ok {
			t.Error("Expected history record to keep the old name")
		}
		if r.History[key].Products["Milk"].Category != "Dairy" {
			t.Error("Expected history record to keep the old category")
		}
	})

	t.Run("CaseOnlyRename", func(t *testing.T) {
		r := newTestRecord(t)
		if _, err := r.RenameOrRecategorize("Milk", "milk", "", ""); err != nil {
			t.Fatalf("Expected a case-only rename to succeed, got %v", err)
		}
		if _, ok := r.MasterList["milk"]; !ok {
			t.Error("Expected 'milk' in the master list")
		}
	})

	t.Run("CollisionIsRejected", func(t *testing.T) {
		r := newTestRecord(t)
		if _, err := r.RenameOrRecategorize("Milk", "cheese", "", ""); !errors.Is(err, ErrDuplicateProduct) {
			t.Errorf("Expected ErrDuplicateProduct, got %v", err)
		}
		if _, ok := r.MasterList["Milk"]; !ok {
			t.Error("Expected 'Milk' to be untouched")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		r := newTestRecord(t)
		if _, err := r.RenameOrRecategorize("Butter", "Ghee", "", ""); !errors.Is(err, ErrUnknownProduct) {
			t.Errorf("Expected ErrUnknownProduct, got %v", err)
		}
	})
}

func TestDeleteProduct(t *testing.T) {
	r := newTestRecord(t)
	if err := r.Select("Milk", 1, testNow); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	key, _ := r.Commit(testNow)

	if err := r.DeleteProduct("Milk"); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	if _, ok := r.Current["Milk"]; ok {
		t.Error("Expected live selection entry to be removed")
	}
	if _, ok := r.History[key].Products["Milk"]; !ok {
		t.Error("Expected history to keep the deleted product")
	}
	if err := r.Select("Milk", 1, testNow); !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct after delete, got %v", err)
	}
	if err := r.DeleteProduct("Milk"); !errors.Is(err, ErrUnknownProduct) {
		t.Errorf("Expected ErrUnknownProduct on second delete, got %v", err)
	}
}

func TestDeleteProductsAndClear(t *testing.T) {
	r := newTestRecord(t)
	_ = r.Select("Bread", 1, testNow)

	removed := r.DeleteProducts([]string{"Bread", "Ghost", "Apples"})
	if !reflect.DeepEqual(removed, []string{"Apples", "Bread"}) {
		t.Errorf("Unexpected removed list %v", removed)
	}
	if len(r.Current) != 0 {
		t.Errorf("Expected live selection to be empty, got %v", r.Current)
	}

	r.ClearMasterList()
	if len(r.MasterList) != 0 {
		t.Errorf("Expected empty master list, got %v", r.MasterList)
	}
}

func TestCategoriesAndFilter(t *testing.T) {
	r := newTestRecord(t)

	if got := r.Categories(); !reflect.DeepEqual(got, []string{"Bakery", "Dairy", "Fruit"}) {
		t.Errorf("Unexpected categories %v", got)
	}
	if got := r.FilterByCategory(AllCategories); !reflect.DeepEqual(got, []string{"Apples", "Bread", "Cheese", "Milk"}) {
		t.Errorf("Unexpected product list %v", got)
	}
	if got := r.FilterByCategory("Dairy"); !reflect.DeepEqual(got, []string{"Cheese", "Milk"}) {
		t.Errorf("Unexpected dairy list %v", got)
	}
	if got := r.FilterByCategory("Frozen"); len(got) != 0 {
		t.Errorf("Expected no frozen products, got %v", got)
	}

	t.Run("CaseInsensitive", func(t *testing.T) {
		r := newTestRecord(t)
		if _, err := r.AddProduct("Yogurt", "dairy", "units"); err != nil {
			t.Fatalf("AddProduct failed: %v", err)
		}
		if got := r.MasterList["Yogurt"].Category; got != "Dairy" {
			t.Errorf("Expected existing spelling Dairy, got %q", got)
		}
		r.MasterList["Kefir"] = Product{Category: "DAIRY", Unit: "L"}
		if got := r.Categories(); !reflect.DeepEqual(got, []string{"Bakery", "DAIRY", "Fruit"}) {
			t.Errorf("Unexpected categories %v", got)
		}
		if got := r.FilterByCategory("dairy"); !reflect.DeepEqual(got, []string{"Cheese", "Kefir", "Milk", "Yogurt"}) {
			t.Errorf("Unexpected dairy list %v", got)
		}
	})

	t.Run("RecategorizeCanChangeCase", func(t *testing.T) {
		r := NewUserRecord()
		_, _ = r.AddProduct("Milk", "dairy", "L")
		if _, err := r.RenameOrRecategorize("Milk", "", "Dairy", ""); err != nil {
			t.Fatalf("RenameOrRecategorize failed: %v", err)
		}
		if got := r.MasterList["Milk"].Category; got != "Dairy" {
			t.Errorf("Expected Dairy, got %q", got)
		}
	})
}

func TestSelect(t *testing.T) {
	t.Run("Accumulates", func(t *testing.T) {
		r := newTestRecord(t)
		if err := r.Select("Milk", 2, testNow); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if err := r.Select("Milk", 1.5, testNow); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		got := r.Current["Milk"]
		if got.Quantity != 3.5 {
			t.Errorf("Expected accumulated quantity 3.5, got %v", got.Quantity)
		}
		if got.Category != "Dairy" || got.Unit != "L" {
			t.Errorf("Expected category/unit snapshot, got %+v", got)
		}
	})

	t.Run("SnapshotSurvivesMasterEdit", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Cheese", 200, testNow)
		key, _ := r.Commit(testNow)
		if _, err := r.RenameOrRecategorize("Cheese", "", "Deli", "kg"); err != nil {
			t.Fatalf("Recategorize failed: %v", err)
		}
		if got := r.History[key].Products["Cheese"]; got.Category != "Dairy" || got.Unit != "g" {
			t.Errorf("Expected history snapshot to keep Dairy/g, got %+v", got)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		r := newTestRecord(t)
		if err := r.Select("Caviar", 1, testNow); !errors.Is(err, ErrUnknownProduct) {
			t.Errorf("Expected ErrUnknownProduct, got %v", err)
		}
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		r := newTestRecord(t)
		for _, q := range []Quantity{0, -1} {
			if err := r.Select("Milk", q, testNow); !errors.Is(err, ErrInvalidQuantity) {
				t.Errorf("Expected ErrInvalidQuantity for %v, got %v", q, err)
			}
		}
		if len(r.Current) != 0 {
			t.Errorf("Expected no selection, got %v", r.Current)
		}
	})

	t.Run("SetQuantityOverwrites", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Milk", 2, testNow)
		if err := r.SetQuantity("Milk", 5, testNow); err != nil {
			t.Fatalf("SetQuantity failed: %v", err)
		}
		if r.Current["Milk"].Quantity != 5 {
			t.Errorf("Expected quantity 5, got %v", r.Current["Milk"].Quantity)
		}
	})

	t.Run("DeselectAndClear", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Milk", 2, testNow)
		_ = r.Select("Bread", 1, testNow)
		if !r.Deselect("Milk", testNow) {
			t.Error("Expected Deselect to report removal")
		}
		if r.Deselect("Milk", testNow) {
			t.Error("Expected second Deselect to be a no-op")
		}
		r.ClearSelection(testNow)
		if len(r.Current) != 0 {
			t.Errorf("Expected empty selection, got %v", r.Current)
		}
	})
}

func TestReconcile(t *testing.T) {
	t.Run("AppliesRows", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Milk", 2, testNow)
		_ = r.Select("Bread", 1, testNow)

		err := r.Reconcile([]SelectionRow{
			{Product: "Milk", Selected: true, Quantity: 4},
			{Product: "Bread", Selected: false},
			{Product: "Apples", Selected: true, Quantity: 1},
			{Product: "Cheese", Selected: false},
		}, testNow)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}

		want := Selection{
			"Milk":   {Quantity: 4, Category: "Dairy", Unit: "L"},
			"Apples": {Quantity: 1, Category: "Fruit", Unit: "kg"},
		}
		if !reflect.DeepEqual(r.Current, want) {
			t.Errorf("Expected %v, got %v", want, r.Current)
		}
	})

	t.Run("InvalidRowChangesNothing", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Milk", 2, testNow)

		err := r.Reconcile([]SelectionRow{
			{Product: "Milk", Selected: false},
			{Product: "Caviar", Selected: true, Quantity: 1},
		}, testNow)
		if !errors.Is(err, ErrUnknownProduct) {
			t.Fatalf("Expected ErrUnknownProduct, got %v", err)
		}
		if _, ok := r.Current["Milk"]; !ok {
			t.Error("Expected Milk to remain selected")
		}
	})

	t.Run("DeselectsItemMissingFromMasterList", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Apples", 3, testNow)
		key, _ := r.Commit(testNow)
		if err := r.DeleteProduct("Apples"); err != nil {
			t.Fatalf("DeleteProduct failed: %v", err)
		}
		if err := r.Reuse(key, testNow); err != nil {
			t.Fatalf("Reuse failed: %v", err)
		}

		err := r.Reconcile([]SelectionRow{{Product: "Apples", Selected: false}}, testNow)
		if err != nil {
			t.Fatalf("Expected deselect to succeed, got %v", err)
		}
		if _, ok := r.Current["Apples"]; ok {
			t.Error("Expected Apples to be deselected")
		}
	})
}

func TestCommitSnapshotIsolation(t *testing.T) {
	r := newTestRecord(t)
	_ = r.Select("Milk", 2, testNow)
	first, _ := r.Commit(testNow)

	_ = r.Select("Bread", 1, testNow)
	second, _ := r.Commit(testNow)

	if first == second {
		t.Fatalf("Expected distinct keys, got %q twice", first)
	}
	if second != first+"-2" {
		t.Errorf("Expected collision suffix, got %q", second)
	}

	_ = r.Select("Milk", 10, testNow)
	r.Deselect("Bread", testNow)

	if got := r.History[first].Products; len(got) != 1 || got["Milk"].Quantity != 2 {
		t.Errorf("First snapshot changed: %v", got)
	}
	if got := r.History[second].Products; len(got) != 2 || got["Milk"].Quantity != 2 || got["Bread"].Quantity != 1 {
		t.Errorf("Second snapshot changed: %v", got)
	}
	if r.History[first].WeekOf != "2024-05-06" {
		t.Errorf("Expected week_of 2024-05-06, got %s", r.History[first].WeekOf)
	}
	if len(r.Current) != 1 {
		t.Errorf("Expected live selection to be kept after commit, got %v", r.Current)
	}
}

func TestHistoryOperations(t *testing.T) {
	r := newTestRecord(t)
	_ = r.Select("Milk", 2, testNow)
	older, _ := r.Commit(testNow)
	r.ClearSelection(testNow)
	_ = r.Select("Bread", 3, testNow)
	newer, _ := r.Commit(testNow.Add(time.Hour))

	if got := r.HistoryKeys(); !reflect.DeepEqual(got, []string{newer, older}) {
		t.Errorf("Expected newest first, got %v", got)
	}

	if err := r.Reuse(older, testNow); err != nil {
		t.Fatalf("Reuse failed: %v", err)
	}
	if !reflect.DeepEqual(r.Current, r.History[older].Products) {
		t.Errorf("Expected live selection to equal history, got %v", r.Current)
	}
	_ = r.Select("Milk", 1, testNow)
	if r.History[older].Products["Milk"].Quantity != 2 {
		t.Error("Expected reuse to copy, not alias, the history record")
	}

	if err := r.DeleteHistory(older); err != nil {
		t.Fatalf("DeleteHistory failed: %v", err)
	}
	if err := r.DeleteHistory(older); !errors.Is(err, ErrUnknownHistory) {
		t.Errorf("Expected ErrUnknownHistory, got %v", err)
	}
	if err := r.Reuse("nope", testNow); !errors.Is(err, ErrUnknownHistory) {
		t.Errorf("Expected ErrUnknownHistory, got %v", err)
	}
}

func TestRecommend(t *testing.T) {
	r := newTestRecord(t)
	_ = r.Select("Bread", 1, testNow)

	if got := r.Recommend(2); !reflect.DeepEqual(got, []string{"Apples", "Cheese"}) {
		t.Errorf("Unexpected recommendations %v", got)
	}
	if got := r.Recommend(10); !reflect.DeepEqual(got, []string{"Apples", "Cheese", "Milk"}) {
		t.Errorf("Unexpected recommendations %v", got)
	}
	if got := r.Recommend(0); len(got) != 0 {
		t.Errorf("Expected no recommendations, got %v", got)
	}
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2024, 5, 12, 23, 0, 0, 0, time.UTC)
	if got := StartOfWeek(sunday).Format("2006-01-02"); got != "2024-05-06" {
		t.Errorf("Expected 2024-05-06, got %s", got)
	}
	monday := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	if got := StartOfWeek(monday).Format("2006-01-02"); got != "2024-05-06" {
		t.Errorf("Expected 2024-05-06, got %s", got)
	}
}

func TestUserRecordJSON(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		r := newTestRecord(t)
		_ = r.Select("Milk", 2, testNow)
		_, _ = r.Commit(testNow)

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var loaded UserRecord
		if err := json.Unmarshal(data, &loaded); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if !reflect.DeepEqual(loaded.MasterList, r.MasterList) {
			t.Errorf("Master list mismatch: %v vs %v", loaded.MasterList, r.MasterList)
		}
		if !reflect.DeepEqual(loaded.Current, r.Current) {
			t.Errorf("Selection mismatch: %v vs %v", loaded.Current, r.Current)
		}
		if !reflect.DeepEqual(loaded.History, r.History) {
			t.Errorf("History mismatch: %v vs %v", loaded.History, r.History)
		}
	})

	t.Run("LegacyLayout", func(t *testing.T) {
		legacy := `{
			"master_list": {"Leche": {"category": "Lácteos", "quantity_type": "litros"}},
			"weekly_selections": {"Leche": {"quantity": 3, "category": "Lácteos", "quantity_type": "litros"}}
		}`
		var r UserRecord
		if err := json.Unmarshal([]byte(legacy), &r); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if r.MasterList["Leche"].Unit != "litros" {
			t.Errorf("Expected unit from quantity_type, got %+v", r.MasterList["Leche"])
		}
		if r.Current["Leche"].Quantity != 3 {
			t.Errorf("Expected legacy selection to become live, got %v", r.Current)
		}
		if len(r.History) != 0 {
			t.Errorf("Expected no history, got %v", r.History)
		}
	})

	t.Run("StringQuantitiesAndNaiveTimestamps", func(t *testing.T) {
		doc := `{
			"master_list": {},
			"weekly_selections": {
				"2024-05-01 10:00:00": {
					"timestamp": "2024-05-01T10:00:00.123456",
					"products": {"Eggs": {"quantity": "12", "category": "Dairy", "unit": "units"},
					             "Salt": {"quantity": "a pinch", "category": "Pantry", "unit": ""}}
				}
			}
		}`
		var r UserRecord
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		rec, ok := r.History["2024-05-01 10:00:00"]
		if !ok {
			t.Fatal("Expected history record")
		}
		if rec.Timestamp.IsZero() {
			t.Error("Expected timestamp to be parsed")
		}
		if rec.Products["Eggs"].Quantity != 12 {
			t.Errorf("Expected quantity 12, got %v", rec.Products["Eggs"].Quantity)
		}
		salt := rec.Products["Salt"]
		if salt.QuantityText != "a pinch" || salt.Quantity != 0 {
			t.Errorf("Expected free-text quantity to be kept, got %+v", salt)
		}

		out, err := json.Marshal(&r)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var again UserRecord
		if err := json.Unmarshal(out, &again); err != nil {
			t.Fatalf("Unmarshal of saved record failed: %v", err)
		}
		if got := again.History["2024-05-01 10:00:00"].Products["Salt"].QuantityText; got != "a pinch" {
			t.Errorf("Expected free-text quantity to survive a save, got %q in %s", got, out)
		}
		if got := Export(again.History["2024-05-01 10:00:00"].Products); got != "🥫 PANTRY\n• Salt (a pinch)\n" {
			t.Errorf("Unexpected export %q", got)
		}
	})
}

func TestFreeTextQuantity(t *testing.T) {
	load := func(t *testing.T) *UserRecord {
		t.Helper()
		doc := `{
			"master_list": {"Salt": {"category": "Pantry", "unit": "g"}},
			"weekly_selections": {"current": {"timestamp": "2024-05-01T10:00:00Z",
				"products": {"Salt": {"quantity": "a pinch", "category": "Pantry", "unit": "g"}}}}
		}`
		var r UserRecord
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		return &r
	}

	t.Run("ReconcileKeepsTextWithoutQuantity", func(t *testing.T) {
		r := load(t)
		if err := r.Reconcile([]SelectionRow{{Product: "Salt", Selected: true}}, testNow); err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if got := r.Current["Salt"].QuantityText; got != "a pinch" {
			t.Errorf("Expected text to be kept, got %+v", r.Current["Salt"])
		}
	})

	t.Run("NumericQuantityReplacesText", func(t *testing.T) {
		r := load(t)
		if err := r.Select("Salt", 5, testNow); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		got := r.Current["Salt"]
		if got.QuantityText != "" || got.Quantity != 5 {
			t.Errorf("Expected quantity 5 without text, got %+v", got)
		}
	})
}

func TestQuantityRounding(t *testing.T) {
	r := newTestRecord(t)
	_ = r.Select("Milk", 0.1, testNow)
	_ = r.Select("Milk", 0.2, testNow)

	if got := r.Current["Milk"].Quantity; got != 0.3 {
		t.Errorf("Expected 0.3, got %v", float64(got))
	}
	a, b := Quantity(0.1), Quantity(0.2)
	if got := (a + b).String(); got != "0.3" {
		t.Errorf("Expected 0.3, got %s", got)
	}
	if got := Quantity(1.23456).String(); got != "1.235" {
		t.Errorf("Expected 1.235, got %s", got)
	}
}
