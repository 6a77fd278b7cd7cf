package grocery

import (
	"fmt"
	"sort"
	"time"
)

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Commit snapshots the live selection into a new history record and returns its key.
// The live selection is left as it is.
func (r *UserRecord) Commit(now time.Time) (string, HistoryRecord) {
	now = now.UTC()
	base := now.Format(time.RFC3339)
	key := base
	for i := 2; ; i++ {
		if _, taken := r.History[key]; !taken && key != CurrentKey {
			break
		}
		key = fmt.Sprintf("%s-%d", base, i)
	}

	rec := HistoryRecord{
		Timestamp: now,
		WeekOf:    StartOfWeek(now).Format("2006-01-02"),
		Products:  r.Current.Clone(),
	}
	r.History[key] = rec
	return key, rec.Clone()
}

// HistoryKeys returns history keys, newest first.
func (r *UserRecord) HistoryKeys() []string {
	keys := make([]string, 0, len(r.History))
	for k := range r.History {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := r.History[keys[i]].Timestamp, r.History[keys[j]].Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return keys[i] > keys[j]
	})
	return keys
}

// Reuse replaces the live selection with a copy of a history record.
func (r *UserRecord) Reuse(key string, now time.Time) error {
	rec, ok := r.History[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHistory, key)
	}
	r.Current = rec.Products.Clone()
	r.CurrentUpdatedAt = now
	return nil
}

// DeleteHistory removes a history record permanently.
func (r *UserRecord) DeleteHistory(key string) error {
	if _, ok := r.History[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHistory, key)
	}
	delete(r.History, key)
	return nil
}
