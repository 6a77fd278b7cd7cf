package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// ActionMetric records a single user mutation.
type ActionMetric struct {
	Action    string
	UserEmail string
	LatencyMS int64
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ActionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_metrics (action, user_email, latency_ms, timestamp) VALUES (?, ?, ?, ?)`,
		m.Action, m.UserEmail, m.LatencyMS, ts.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to insert action metric: %w", err)
	}
	return nil
}

// RecordAction satisfies grocery.ActionRecorder.
func (s *Store) RecordAction(ctx context.Context, action, email string, latency time.Duration) error {
	return s.Record(ctx, ActionMetric{
		Action:    action,
		UserEmail: email,
		LatencyMS: latency.Milliseconds(),
	})
}

// DailyUsage represents action totals for a single day.
type DailyUsage struct {
	Date         string
	TotalActions int
	ActiveUsers  int
	AvgLatencyMS float64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       COUNT(DISTINCT user_email),
		       AVG(latency_ms)
		FROM action_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u   DailyUsage
			avg sql.NullFloat64
		)
		if err := rows.Scan(&u.Date, &u.TotalActions, &u.ActiveUsers, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.AvgLatencyMS = avg.Float64
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up action metrics: %w", err)
	}
	return res.RowsAffected()
}
