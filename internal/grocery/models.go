package grocery

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// CurrentKey is the weekly_selections key holding the live selection.
	CurrentKey = "current"
	// AllCategories disables category filtering.
	AllCategories = "All"
	// DefaultCategory is assigned to products added without a category.
	DefaultCategory = "Other"
	// DefaultUnit is assigned to products added without a unit.
	DefaultUnit = "units"
)

var units = []string{"units", "kg", "g", "L", "ml", "packs", "bottles", "cans", "boxes", "dozen"}

// Units returns the unit words offered when creating products.
func Units() []string {
	return append([]string(nil), units...)
}

// Quantity is the amount of a selected product. Zero means "no quantity".
type Quantity float64

// Valid reports whether q can be stored as a selection quantity.
func (q Quantity) Valid() bool {
	f := float64(q)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// String formats q with at most quantityDecimals decimals so accumulated
// floats print as 0.3 rather than 0.30000000000000004.
func (q Quantity) String() string {
	return strconv.FormatFloat(float64(q.Round()), 'f', -1, 64)
}

const quantityDecimals = 3

// Round rounds q to quantityDecimals decimal places.
func (q Quantity) Round() Quantity {
	scale := math.Pow10(quantityDecimals)
	return Quantity(math.Round(float64(q)*scale) / scale)
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else decodes as zero.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	v, _, err := parseQuantity(data)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// parseQuantity decodes a stored quantity. A string that is not a number is
// returned as text with a zero value.
func parseQuantity(data []byte) (Quantity, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, "", nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, s, nil
		}
		return Quantity(f), "", nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, "", err
	}
	return Quantity(f), "", nil
}

// Product is a master list entry. The product name is the map key.
type Product struct {
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// UnmarshalJSON also reads the older "quantity_type" field as the unit.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		Category     string `json:"category"`
		Unit         string `json:"unit"`
		QuantityType string `json:"quantity_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Category = raw.Category
	p.Unit = raw.Unit
	if p.Unit == "" {
		p.Unit = raw.QuantityType
	}
	return nil
}

// MasterList maps product name to its metadata.
type MasterList map[string]Product

// Clone returns a copy of the master list.
func (m MasterList) Clone() MasterList {
	out := make(MasterList, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SelectionItem is a selected product with its category and unit copied in.
// QuantityText holds a free-text amount such as "a pinch" from older data;
// it is written back as-is and cleared once a numeric quantity is set.
type SelectionItem struct {
	Quantity     Quantity
	QuantityText string
	Category     string
	Unit         string
}

// DisplayQuantity returns the amount as shown to users.
func (s SelectionItem) DisplayQuantity() string {
	if s.QuantityText != "" {
		return s.QuantityText
	}
	return s.Quantity.String()
}

// HasQuantity reports whether the item carries a usable amount.
func (s SelectionItem) HasQuantity() bool {
	return s.QuantityText != "" || s.Quantity.Valid()
}

// QuantityValue is the JSON value of the amount: the text when set, otherwise the number.
func (s SelectionItem) QuantityValue() any {
	if s.QuantityText != "" {
		return s.QuantityText
	}
	return s.Quantity
}

// MarshalJSON writes QuantityText in the quantity field when it is set.
func (s SelectionItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Quantity any    `json:"quantity"`
		Category string `json:"category"`
		Unit     string `json:"unit"`
	}{s.QuantityValue(), s.Category, s.Unit})
}

// UnmarshalJSON also reads the older "quantity_type" field as the unit.
func (s *SelectionItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Quantity     json.RawMessage `json:"quantity"`
		Category     string          `json:"category"`
		Unit         string          `json:"unit"`
		QuantityType string          `json:"quantity_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q, text, err := parseQuantity(raw.Quantity)
	if err != nil {
		return err
	}
	s.Quantity = q
	s.QuantityText = text
	s.Category = raw.Category
	s.Unit = raw.Unit
	if s.Unit == "" {
		s.Unit = raw.QuantityType
	}
	return nil
}

// Selection maps product name to a selected item.
type Selection map[string]SelectionItem

// Clone returns a deep copy of the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// HistoryRecord is a frozen copy of a weekly selection.
type HistoryRecord struct {
	Timestamp time.Time `json:"timestamp"`
	WeekOf    string    `json:"week_of,omitempty"`
	Products  Selection `json:"products"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON tolerates ISO 8601 timestamps without a zone.
func (h *HistoryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp string    `json:"timestamp"`
		WeekOf    string    `json:"week_of"`
		Products  Selection `json:"products"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Timestamp = parseTimestamp(raw.Timestamp)
	h.WeekOf = raw.WeekOf
	h.Products = raw.Products
	if h.Products == nil {
		h.Products = Selection{}
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Clone returns a deep copy of the record.
func (h HistoryRecord) Clone() HistoryRecord {
	h.Products = h.Products.Clone()
	return h
}

// UserRecord is everything stored for one user.
type UserRecord struct {
	MasterList       MasterList
	Current          Selection
	CurrentUpdatedAt time.Time
	History          map[string]HistoryRecord
}

// NewUserRecord returns an empty record.
func NewUserRecord() *UserRecord {
	return &UserRecord{
		MasterList: MasterList{},
		Current:    Selection{},
		History:    map[string]HistoryRecord{},
	}
}

// Clone returns a deep copy of the record.
func (r *UserRecord) Clone() *UserRecord {
	out := &UserRecord{
		MasterList:       r.MasterList.Clone(),
		Current:          r.Current.Clone(),
		CurrentUpdatedAt: r.CurrentUpdatedAt,
		History:          make(map[string]HistoryRecord, len(r.History)),
	}
	for k, v := range r.History {
		out.History[k] = v.Clone()
	}
	return out
}

type userRecordJSON struct {
	MasterList       MasterList                 `json:"master_list"`
	WeeklySelections map[string]json.RawMessage `json:"weekly_selections"`
}

// MarshalJSON stores the live selection under CurrentKey next to the history records.
func (r *UserRecord) MarshalJSON() ([]byte, error) {
	selections := make(map[string]HistoryRecord, len(r.History)+1)
	for k, v := range r.History {
		selections[k] = v
	}
	selections[CurrentKey] = HistoryRecord{Timestamp: r.CurrentUpdatedAt, Products: r.Current}

	master := r.MasterList
	if master == nil {
		master = MasterList{}
	}
	return json.Marshal(struct {
		MasterList       MasterList               `json:"master_list"`
		WeeklySelections map[string]HistoryRecord `json:"weekly_selections"`
	}{master, selections})
}

// UnmarshalJSON reads the current layout as well as the flat
// product -> item layout where weekly_selections was the live selection.
func (r *UserRecord) UnmarshalJSON(data []byte) error {
	var raw userRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = *NewUserRecord()
	if raw.MasterList != nil {
		r.MasterList = raw.MasterList
	}

	for key, msg := range raw.WeeklySelections {
		var shape struct {
			Products json.RawMessage `json:"products"`
			Quantity json.RawMessage `json:"quantity"`
		}
		if err := json.Unmarshal(msg, &shape); err != nil {
			return err
		}

		switch {
		case shape.Products != nil:
			var rec HistoryRecord
			if err := json.Unmarshal(msg, &rec); err != nil {
				return err
			}
			if rec.Products == nil {
				rec.Products = Selection{}
			}
			if key == CurrentKey {
				r.Current = rec.Products
				r.CurrentUpdatedAt = rec.Timestamp
			} else {
				r.History[key] = rec
			}
		case shape.Quantity != nil:
			var item SelectionItem
			if err := json.Unmarshal(msg, &item); err != nil {
				return err
			}
			r.Current[key] = item
		}
	}
	return nil
}
