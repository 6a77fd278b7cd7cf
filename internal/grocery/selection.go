package grocery

import (
	"fmt"
	"sort"
	"time"
)

// SelectionRow is one line of a submitted selection form.
type SelectionRow struct {
	Product      string   `json:"product"`
	Selected     bool     `json:"selected"`
	Quantity     Quantity `json:"quantity"`
	QuantityText string   `json:"quantity_text,omitempty"`
}

// Select adds quantity to a product in the live selection.
// Repeated calls accumulate: Select(p, 1) then Select(p, 2) stores 3.
// A free-text amount is replaced by quantity.
func (r *UserRecord) Select(name string, quantity Quantity, now time.Time) error {
	product, ok := r.MasterList[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	if !quantity.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}

	item, selected := r.Current[name]
	if !selected {
		item = SelectionItem{Category: product.Category, Unit: product.Unit}
	}
	if item.QuantityText != "" {
		item.Quantity, item.QuantityText = 0, ""
	}
	item.Quantity = (item.Quantity + quantity).Round()
	r.Current[name] = item
	r.CurrentUpdatedAt = now
	return nil
}

// SetQuantity overwrites the quantity of a product, selecting it if needed.
func (r *UserRecord) SetQuantity(name string, quantity Quantity, now time.Time) error {
	product, ok := r.MasterList[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	if !quantity.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}

	item, selected := r.Current[name]
	if !selected {
		item = SelectionItem{Category: product.Category, Unit: product.Unit}
	}
	item.Quantity = quantity
	item.QuantityText = ""
	r.Current[name] = item
	r.CurrentUpdatedAt = now
	return nil
}

// Deselect removes a product from the live selection and reports whether it was selected.
func (r *UserRecord) Deselect(name string, now time.Time) bool {
	if _, ok := r.Current[name]; !ok {
		return false
	}
	delete(r.Current, name)
	r.CurrentUpdatedAt = now
	return true
}

// ClearSelection empties the live selection.
func (r *UserRecord) ClearSelection(now time.Time) {
	r.Current = Selection{}
	r.CurrentUpdatedAt = now
}

// Reconcile applies submitted rows to the live selection. Every row is
// validated first; on error nothing changes. Only selected rows must name a
// master list product, so items whose product was deleted can still be
// deselected. A selected row without a quantity keeps an existing free-text amount.
func (r *UserRecord) Reconcile(rows []SelectionRow, now time.Time) error {
	for _, row := range rows {
		if !row.Selected {
			continue
		}
		if _, ok := r.MasterList[row.Product]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProduct, row.Product)
		}
		if !row.Quantity.Valid() && !r.keepsText(row) {
			return fmt.Errorf("%w: %q has quantity %v", ErrInvalidQuantity, row.Product, row.Quantity)
		}
	}

	for _, row := range rows {
		if !row.Selected {
			r.Deselect(row.Product, now)
			continue
		}
		if r.keepsText(row) {
			continue
		}
		if item, ok := r.Current[row.Product]; ok && item.QuantityText == "" && item.Quantity == row.Quantity {
			continue
		}
		if err := r.SetQuantity(row.Product, row.Quantity, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRecord) keepsText(row SelectionRow) bool {
	item, ok := r.Current[row.Product]
	return ok && item.QuantityText != "" && row.Quantity == 0
}

// Recommend returns up to n master list products that are not selected, sorted.
func (r *UserRecord) Recommend(n int) []string {
	if n <= 0 {
		return []string{}
	}
	var out []string
	for name := range r.MasterList {
		if _, selected := r.Current[name]; !selected {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []string{}
	}
	return out
}
