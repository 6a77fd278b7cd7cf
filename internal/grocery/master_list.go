package grocery

import (
	"fmt"
	"sort"
	"strings"
)

// AddProduct inserts a new product and returns the trimmed name.
// Names are compared case-insensitively, so "milk" is a duplicate of "Milk".
func (r *UserRecord) AddProduct(name, category, unit string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if existing, ok := r.lookupFold(name, ""); ok {
		return "", fmt.Errorf("%w: %q", ErrDuplicateProduct, existing)
	}

	r.MasterList[name] = Product{
		Category: r.canonicalCategory(orDefault(category, DefaultCategory), ""),
		Unit:     orDefault(unit, DefaultUnit),
	}
	return name, nil
}

// RenameOrRecategorize updates a product. Empty arguments keep the current value.
// The live selection follows the product; history records are never touched.
func (r *UserRecord) RenameOrRecategorize(oldName, newName, newCategory, newUnit string) (string, error) {
	current, ok := r.MasterList[oldName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProduct, oldName)
	}

	name := strings.TrimSpace(newName)
	if name == "" {
		name = oldName
	}
	if name != oldName {
		if existing, ok := r.lookupFold(name, oldName); ok {
			return "", fmt.Errorf("%w: %q", ErrDuplicateProduct, existing)
		}
	}

	updated := Product{
		Category: r.canonicalCategory(orDefault(newCategory, current.Category), oldName),
		Unit:     orDefault(newUnit, current.Unit),
	}

	delete(r.MasterList, oldName)
	r.MasterList[name] = updated

	if item, selected := r.Current[oldName]; selected {
		delete(r.Current, oldName)
		item.Category = updated.Category
		item.Unit = updated.Unit
		r.Current[name] = item
	}
	return name, nil
}

// DeleteProduct removes a product from the master list and the live selection.
func (r *UserRecord) DeleteProduct(name string) error {
	if _, ok := r.MasterList[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	delete(r.MasterList, name)
	delete(r.Current, name)
	return nil
}

// DeleteProducts removes every listed product that exists and returns the removed names.
func (r *UserRecord) DeleteProducts(names []string) []string {
	var removed []string
	for _, name := range names {
		if err := r.DeleteProduct(name); err == nil {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// ClearMasterList empties the master list and the live selection.
func (r *UserRecord) ClearMasterList() {
	r.MasterList = MasterList{}
	r.Current = Selection{}
}

// Categories returns the distinct categories in use, sorted. Categories that
// differ only in case are reported once, under their first spelling in sort order.
func (r *UserRecord) Categories() []string {
	seen := make(map[string]string)
	for _, p := range r.MasterList {
		key := strings.ToLower(p.Category)
		if prev, ok := seen[key]; !ok || p.Category < prev {
			seen[key] = p.Category
		}
	}
	out := make([]string, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// FilterByCategory returns product names sorted lexicographically. Categories
// match case-insensitively. AllCategories (or an empty category) returns every product.
func (r *UserRecord) FilterByCategory(category string) []string {
	all := category == "" || category == AllCategories
	out := make([]string, 0, len(r.MasterList))
	for name, p := range r.MasterList {
		if all || strings.EqualFold(p.Category, category) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// canonicalCategory returns the spelling already used by another product when
// category matches it case-insensitively. The product named skip is ignored.
func (r *UserRecord) canonicalCategory(category, skip string) string {
	for name, p := range r.MasterList {
		if name != skip && p.Category != category && strings.EqualFold(p.Category, category) {
			return p.Category
		}
	}
	return category
}

// lookupFold finds a product whose name matches case-insensitively, ignoring skip.
func (r *UserRecord) lookupFold(name, skip string) (string, bool) {
	for existing := range r.MasterList {
		if existing != skip && strings.EqualFold(existing, name) {
			return existing, true
		}
	}
	return "", false
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
